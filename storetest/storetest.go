// Package storetest provides in-memory stores with the same contracts as the
// MongoDB repositories, for service and handler tests.
package storetest

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartline/models"
	"heartline/repository"
)

// faults lets a test force an operation to fail.
type faults struct {
	mu  sync.Mutex
	ops map[string]error
}

func (f *faults) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ops == nil {
		f.ops = map[string]error{}
	}
	f.ops[op] = err
}

func (f *faults) fault(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ops[op]
}

var (
	ErrNotFound  = repository.ErrNotFound
	ErrDuplicate = repository.ErrDuplicate
)

func copyIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return nil
	}
	return append([]primitive.ObjectID(nil), ids...)
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func copyReadState(rs models.ReadState) models.ReadState {
	out := make(models.ReadState, len(rs))
	for k, v := range rs {
		out[k] = v
	}
	return out
}
