package node

import "testing"

type recordingAddedListener struct {
	added   []uint8
	removed []uint8
}

func (r *recordingAddedListener) OnNodeAdded(n *Node)      { r.added = append(r.added, n.ID()) }
func (r *recordingAddedListener) OnNodeRemoved(id uint8)   { r.removed = append(r.removed, id) }

func TestStore_AddGetRemove(t *testing.T) {
	s := NewStore()
	n, _ := New(5)
	if err := s.Add(n); err != nil {
		t.Fatal(err)
	}
	if s.Get(5) != n {
		t.Fatal("Get(5) did not return the added node")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if err := s.Remove(5); err != nil {
		t.Fatal(err)
	}
	if s.Get(5) != nil {
		t.Fatal("Get(5) should be nil after Remove")
	}
}

func TestStore_AddDuplicate(t *testing.T) {
	s := NewStore()
	n, _ := New(5)
	s.Add(n)
	if err := s.Add(n); err != ErrNodeExists {
		t.Fatalf("err = %v, want ErrNodeExists", err)
	}
}

func TestStore_RemoveUnknown(t *testing.T) {
	s := NewStore()
	if err := s.Remove(9); err != ErrNodeNotFound {
		t.Fatalf("err = %v, want ErrNodeNotFound", err)
	}
}

func TestStore_NotifiesListeners(t *testing.T) {
	s := NewStore()
	l := &recordingAddedListener{}
	s.AddListener(l)

	n, _ := New(5)
	s.Add(n)
	s.Remove(5)

	if len(l.added) != 1 || l.added[0] != 5 {
		t.Fatalf("added = %v, want [5]", l.added)
	}
	if len(l.removed) != 1 || l.removed[0] != 5 {
		t.Fatalf("removed = %v, want [5]", l.removed)
	}
}

func TestStore_All(t *testing.T) {
	s := NewStore()
	n1, _ := New(1)
	n2, _ := New(2)
	s.Add(n1)
	s.Add(n2)
	if len(s.All()) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(s.All()))
	}
}
