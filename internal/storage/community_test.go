package storage

import (
	"testing"

	"github.com/duskchat/dusk-node/internal/crdt"
)

func TestSaveLoadCommunityDocument(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveCommunityDocument("com_1", []byte(`{"community_id":"com_1"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := s.LoadCommunityDocument("com_1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(data) != `{"community_id":"com_1"}` {
		t.Fatalf("unexpected data: %s", data)
	}

	ids, err := s.ListCommunityIDs()
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "com_1" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if err := s.RemoveCommunityDocument("com_1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.LoadCommunityDocument("com_1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestCommunityMetaListing(t *testing.T) {
	s := openTestStore(t)
	meta := crdt.CommunityMeta{CommunityID: "com_1", Name: "Books", CreatedBy: "peerA", CreatedAt: 1000}
	if err := s.SaveCommunityMeta(meta); err != nil {
		t.Fatalf("save meta: %v", err)
	}
	list, err := s.ListCommunityMeta()
	if err != nil {
		t.Fatalf("list meta: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Books" {
		t.Fatalf("unexpected meta list: %+v", list)
	}
	if err := s.RemoveCommunityMeta("com_1"); err != nil {
		t.Fatalf("remove meta: %v", err)
	}
	list, _ = s.ListCommunityMeta()
	if len(list) != 0 {
		t.Fatalf("expected empty meta list after remove, got %+v", list)
	}
}
