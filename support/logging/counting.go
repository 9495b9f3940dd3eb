// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package logging

import (
	"sync/atomic"
)

// Counting wraps an L and counts the warnings and errors written through it.
//
// Counting is safe for concurrent use.
type Counting struct {
	// Base is the wrapped logger. If nil, messages are only counted.
	Base L

	errors   int64
	warnings int64
}

var _ L = (*Counting)(nil)

// Errors returns the number of error-level messages logged so far.
func (c *Counting) Errors() int64 { return atomic.LoadInt64(&c.errors) }

// Warnings returns the number of warning-level messages logged so far.
func (c *Counting) Warnings() int64 { return atomic.LoadInt64(&c.warnings) }

func (c *Counting) base() L { return Must(c.Base) }

// Error implements L.
func (c *Counting) Error(args ...interface{}) {
	atomic.AddInt64(&c.errors, 1)
	c.base().Error(args...)
}

// Warn implements L.
func (c *Counting) Warn(args ...interface{}) {
	atomic.AddInt64(&c.warnings, 1)
	c.base().Warn(args...)
}

// Info implements L.
func (c *Counting) Info(args ...interface{}) { c.base().Info(args...) }

// Debug implements L.
func (c *Counting) Debug(args ...interface{}) { c.base().Debug(args...) }

// Errorf implements L.
func (c *Counting) Errorf(f string, args ...interface{}) {
	atomic.AddInt64(&c.errors, 1)
	c.base().Errorf(f, args...)
}

// Warnf implements L.
func (c *Counting) Warnf(f string, args ...interface{}) {
	atomic.AddInt64(&c.warnings, 1)
	c.base().Warnf(f, args...)
}

// Infof implements L.
func (c *Counting) Infof(f string, args ...interface{}) { c.base().Infof(f, args...) }

// Debugf implements L.
func (c *Counting) Debugf(f string, args ...interface{}) { c.base().Debugf(f, args...) }
