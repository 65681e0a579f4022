package vault

// NameIterator walks a snapshot of entry names in lexicographic order.
// Mutating the vault does not affect an iterator already taken; closing the
// vault stops it.
type NameIterator struct {
	src      *Vault
	names    []string
	pos      int
	released bool
	err      error
}

// Names returns an iterator over the current entry names
func (v *Vault) Names() (*NameIterator, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	return &NameIterator{src: v, names: v.index.names()}, nil
}

// Next returns the next name. It returns false when the names are exhausted
// or the iterator can no longer be used; Err tells the two apart.
func (it *NameIterator) Next() (string, bool) {
	if it.err != nil {
		return "", false
	}
	if it.released {
		it.err = ErrIteratorReleased
		return "", false
	}
	if it.src.closed {
		it.err = ErrUseAfterClose
		return "", false
	}
	if it.pos >= len(it.names) {
		return "", false
	}

	name := it.names[it.pos]
	it.names[it.pos] = ""
	it.pos++
	return name, true
}

// Err returns the error that stopped the iterator, if any
func (it *NameIterator) Err() error {
	return it.err
}

// Remaining returns how many names are left
func (it *NameIterator) Remaining() int {
	if it.released {
		return 0
	}
	return len(it.names) - it.pos
}

// Release drops the snapshot. It is safe to call more than once.
func (it *NameIterator) Release() {
	it.released = true
	it.names = nil
	it.pos = 0
}

// Collect drains the iterator
func (it *NameIterator) Collect() ([]string, error) {
	out := make([]string, 0, it.Remaining())
	for {
		name, ok := it.Next()
		if !ok {
			return out, it.Err()
		}
		out = append(out, name)
	}
}
