package cache

import "context"

// Nop is an always-miss cache used when the database cannot be opened.
type Nop struct{}

// Get always misses.
func (Nop) Get(context.Context, string, string, float64, int) ([]byte, bool) { return nil, false }

// Put discards the clip.
func (Nop) Put(context.Context, string, string, float64, int, []byte) {}

// RecordUsage discards the record.
func (Nop) RecordUsage(context.Context, string, int, bool) {}
