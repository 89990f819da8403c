package store

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

// PutCategory inserts or replaces a category. An empty ID gets a new one.
func (s *BadgerStore) PutCategory(_ context.Context, c Category) (*Category, error) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	err := s.update(func(txn *badger.Txn) error {
		return setJSON(txn, categoryPrefix+c.ID, c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Category returns a category or ErrNotFound.
func (s *BadgerStore) Category(_ context.Context, id string) (*Category, error) {
	var c *Category
	err := s.view(func(txn *badger.Txn) error {
		var err error
		c, err = getJSON[Category](txn, categoryPrefix+id)
		return err
	})
	return c, err
}

// ListCategories returns all categories ordered by name.
func (s *BadgerStore) ListCategories(_ context.Context) ([]Category, error) {
	var out []Category
	err := s.view(func(txn *badger.Txn) error {
		var err error
		out, err = scanJSON[Category](txn, categoryPrefix)
		return err
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func categoryOf(txn *badger.Txn, id string, withDescription bool) *Category {
	if id == "" {
		return nil
	}
	c, err := getJSON[Category](txn, categoryPrefix+id)
	if err != nil {
		return nil
	}
	if !withDescription {
		c.Description = ""
	}
	return c
}
