// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package pix

import (
	"sync"
)

// Pool of constant sized scratch arrays, to reduce memory allocation overhead
// for the read-only snapshots of the filter passes. Created and owned by the caller,
// safe for concurrent use by multiple pipeline runs. A nil *Pool allocates fresh arrays.
type Pool struct {
	mutex sync.RWMutex
	m     map[int]*sync.Pool
}

// Creates an empty pool
func NewPool() *Pool {
	return &Pool{m: make(map[int]*sync.Pool)}
}

// Returns a pool for byte arrays of the given size
func (p *Pool) getSized(size int) *sync.Pool {
	p.mutex.RLock()
	pool:=p.m[size]
	p.mutex.RUnlock()
	if pool!=nil { return pool }

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if pool=p.m[size]; pool==nil {
		pool=&sync.Pool{
			New: func() interface{} {
				return make([]uint8, size)
			},
		}
		p.m[size]=pool
	}
	return pool
}

// Retrieves an array of given size from the pool. Contents are undefined
func (p *Pool) Get(size int) []uint8 {
	if p==nil { return make([]uint8, size) }
	return p.getSized(size).Get().([]uint8)
}

// Returns an array to the pool. The caller must not use it afterwards
func (p *Pool) Put(arr []uint8) {
	if p==nil || arr==nil { return }
	p.getSized(cap(arr)).Put(arr[:cap(arr)])
}

// Retrieves an array from the pool and fills it with a copy of the given buffer's data
func (p *Pool) Snapshot(b *Buffer) []uint8 {
	s:=p.Get(len(b.Data))
	copy(s, b.Data)
	return s
}

// Drops all pooled arrays
func (p *Pool) Clear() {
	p.mutex.Lock()
	p.m=make(map[int]*sync.Pool)
	p.mutex.Unlock()
}
