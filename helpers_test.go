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

package pfd_test

import (
	"github.com/pfdgo/pfd/internal/expr"
)

// selectorExpr returns a trivial constant-0 union selector, enough to
// exercise AddField's union validation without needing a real cursor.
func selectorExpr() (*expr.Node, error) {
	return expr.Parse("0")
}
