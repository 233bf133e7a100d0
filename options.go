// Copyright 2025 The PFD Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pfd

// Option is a struct rather than an interface: a functional-option struct keeps
// Option construction in one place (here) while Options itself stays a
// plain, inspectable struct that Open, the cursor engine, and the record
// bit-size computation can read fields off of directly.

// Options holds the process-wide process-wide tunables. The zero value is not
// generally useful; use [DefaultOptions] or the With* constructors.
type Options struct {
	// UseMmap enables memory-mapped reads of the product file.
	UseMmap bool
	// PerformBoundaryChecks enables array-index re-validation at
	// goto_*_by_index: the element count is re-evaluated and the index
	// checked against it. A negative index is rejected either way.
	PerformBoundaryChecks bool
	// BypassSpecialTypes makes every goto that lands on a special type
	// automatically apply use_base_type_of_special_type.
	BypassSpecialTypes bool
	// UseFastSizeExpressions prefers a record's size_expr over per-field
	// summation when both are available.
	UseFastSizeExpressions bool
	// PerformConversions applies Conversion transforms on integer/real
	// reads, and changes what GetReadType reports.
	PerformConversions bool
}

// DefaultOptions returns the Options this package uses when none are
// supplied explicitly: mmap and boundary checks on, special-type bypass and
// size-expression shortcuts off, conversions applied.
func DefaultOptions() Options {
	return Options{
		UseMmap:                true,
		PerformBoundaryChecks:  true,
		BypassSpecialTypes:     false,
		UseFastSizeExpressions: false,
		PerformConversions:     true,
	}
}

// Option mutates an [Options] value being built up by [NewOptions].
type Option struct{ apply func(*Options) }

// NewOptions builds an Options starting from [DefaultOptions] and applying
// each Option in order.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	return o
}

// WithMmap sets UseMmap.
func WithMmap(enable bool) Option {
	return Option{func(o *Options) { o.UseMmap = enable }}
}

// WithBoundaryChecks sets PerformBoundaryChecks.
func WithBoundaryChecks(enable bool) Option {
	return Option{func(o *Options) { o.PerformBoundaryChecks = enable }}
}

// WithBypassSpecialTypes sets BypassSpecialTypes.
func WithBypassSpecialTypes(enable bool) Option {
	return Option{func(o *Options) { o.BypassSpecialTypes = enable }}
}

// WithFastSizeExpressions sets UseFastSizeExpressions.
func WithFastSizeExpressions(enable bool) Option {
	return Option{func(o *Options) { o.UseFastSizeExpressions = enable }}
}

// WithConversions sets PerformConversions.
func WithConversions(enable bool) Option {
	return Option{func(o *Options) { o.PerformConversions = enable }}
}
