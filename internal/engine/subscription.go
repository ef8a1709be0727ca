/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import "sync"

// Subscription is the handle returned by On. Release detaches the handler;
// calling it more than once is safe.
type Subscription struct {
	once    sync.Once
	release func()
}

// NewSubscription returns a handle that runs release once. Engines other
// than Canvas use it to hand out their own handles.
func NewSubscription(release func()) *Subscription {
	return &Subscription{release: release}
}

func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// Subscriptions collects handles and releases them in reverse order of acquisition.
type Subscriptions struct {
	mu   sync.Mutex
	subs []*Subscription
}

func (ss *Subscriptions) Add(s ...*Subscription) {
	ss.mu.Lock()
	ss.subs = append(ss.subs, s...)
	ss.mu.Unlock()
}

func (ss *Subscriptions) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.subs)
}

func (ss *Subscriptions) ReleaseAll() {
	ss.mu.Lock()
	subs := ss.subs
	ss.subs = nil
	ss.mu.Unlock()
	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Release()
	}
}
