/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// Clone returns a detached deep copy of o with a fresh ID. Nothing in the copy
// aliases the source (clip rect and path points included).
func Clone(o Object) (Object, error) {
	var dst Object
	switch o.(type) {
	case *Text:
		dst = new(Text)
	case *Line:
		dst = new(Line)
	case *Rect:
		dst = new(Rect)
	case *Circle:
		dst = new(Circle)
	case *Image:
		dst = new(Image)
	case *Path:
		dst = new(Path)
	default:
		return nil, fmt.Errorf("clone: unsupported object %T", o)
	}
	if err := copier.CopyWithOption(dst, o, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone %s: %w", o.Kind(), err)
	}
	dst.Base().ID = uuid.NewString()
	return dst, nil
}

// CloneAll clones every object, preserving order.
func CloneAll(objs []Object) ([]Object, error) {
	out := make([]Object, 0, len(objs))
	for _, o := range objs {
		c, err := Clone(o)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
