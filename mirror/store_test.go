// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/callboard-foundation/callboard/lib/clock"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror_test.db")
	store, err := Open(Config{
		Path:     path,
		PoolSize: 2,
		Clock:    clock.NewFake(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("store.Close: %v", err)
		}
	})
	return store, path
}

func TestOpenCreatesSchema(t *testing.T) {
	t.Parallel()
	store, _ := openTestStore(t)
	ctx := context.Background()

	queues, err := store.Queues(ctx)
	if err != nil {
		t.Fatalf("Queues: %v", err)
	}
	if len(queues) != 0 {
		t.Fatalf("fresh store has %d queues", len(queues))
	}
}

func TestUpsertQueuePreservesOnEmpty(t *testing.T) {
	t.Parallel()
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertQueue(ctx, Queue{Name: "support", DisplayName: "Support Desk", Strategy: "ringall"}); err != nil {
		t.Fatalf("UpsertQueue: %v", err)
	}
	// A sparse update must not erase the display name or strategy.
	if err := store.UpsertQueue(ctx, Queue{Name: "support"}); err != nil {
		t.Fatalf("UpsertQueue sparse: %v", err)
	}

	queues, err := store.Queues(ctx)
	if err != nil {
		t.Fatalf("Queues: %v", err)
	}
	if len(queues) != 1 {
		t.Fatalf("queue count = %d, want 1", len(queues))
	}
	if q := queues[0]; q.DisplayName != "Support Desk" || q.Strategy != "ringall" {
		t.Fatalf("queue after sparse upsert = %+v", q)
	}

	// A full update replaces.
	if err := store.UpsertQueue(ctx, Queue{Name: "support", DisplayName: "Helpdesk"}); err != nil {
		t.Fatalf("UpsertQueue replace: %v", err)
	}
	queues, _ = store.Queues(ctx)
	if queues[0].DisplayName != "Helpdesk" {
		t.Fatalf("display name = %q, want Helpdesk", queues[0].DisplayName)
	}
}

func TestMemberMirrorRoundTrip(t *testing.T) {
	t.Parallel()
	store, _ := openTestStore(t)
	ctx := context.Background()

	// Full sync writes the membership.
	if err := store.UpsertMember(ctx, Member{
		Queue:       "queueA",
		Interface:   "PJSIP/101",
		DisplayName: "Ada",
		Penalty:     0,
		Paused:      false,
	}); err != nil {
		t.Fatalf("UpsertMember: %v", err)
	}

	// An incremental pause event carries no display name.
	if err := store.UpsertMember(ctx, Member{
		Queue:     "queueA",
		Interface: "PJSIP/101",
		Paused:    true,
		Status:    2,
	}); err != nil {
		t.Fatalf("UpsertMember pause: %v", err)
	}

	members, err := store.Members(ctx, "queueA")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("member count = %d, want exactly one row", len(members))
	}
	m := members[0]
	if !m.Paused {
		t.Fatal("paused flag not applied")
	}
	if m.DisplayName != "Ada" {
		t.Fatalf("display name = %q, want preserved Ada", m.DisplayName)
	}
	if m.Status != 2 {
		t.Fatalf("status = %d, want 2", m.Status)
	}
}

func TestDeleteMember(t *testing.T) {
	t.Parallel()
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertMember(ctx, Member{Queue: "support", Interface: "PJSIP/101"}); err != nil {
		t.Fatalf("UpsertMember: %v", err)
	}
	if err := store.UpsertMember(ctx, Member{Queue: "support", Interface: "PJSIP/202"}); err != nil {
		t.Fatalf("UpsertMember: %v", err)
	}

	if err := store.DeleteMember(ctx, "support", "PJSIP/101"); err != nil {
		t.Fatalf("DeleteMember: %v", err)
	}
	// Deleting a missing row is a no-op.
	if err := store.DeleteMember(ctx, "support", "PJSIP/999"); err != nil {
		t.Fatalf("DeleteMember missing: %v", err)
	}

	members, err := store.Members(ctx, "support")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 || members[0].Interface != "PJSIP/202" {
		t.Fatalf("members after delete = %+v", members)
	}
}

func TestMembersFilterByQueue(t *testing.T) {
	t.Parallel()
	store, _ := openTestStore(t)
	ctx := context.Background()

	store.UpsertMember(ctx, Member{Queue: "support", Interface: "PJSIP/101"})
	store.UpsertMember(ctx, Member{Queue: "sales", Interface: "PJSIP/202"})

	all, err := store.Members(ctx, "")
	if err != nil {
		t.Fatalf("Members all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all member count = %d, want 2", len(all))
	}
	sales, err := store.Members(ctx, "sales")
	if err != nil {
		t.Fatalf("Members sales: %v", err)
	}
	if len(sales) != 1 || sales[0].Interface != "PJSIP/202" {
		t.Fatalf("sales members = %+v", sales)
	}
}

func TestMemberInterfaces(t *testing.T) {
	t.Parallel()
	store, _ := openTestStore(t)
	ctx := context.Background()

	store.UpsertMember(ctx, Member{Queue: "support", Interface: "PJSIP/101"})
	store.UpsertMember(ctx, Member{Queue: "sales", Interface: "PJSIP/101"})
	store.UpsertMember(ctx, Member{Queue: "sales", Interface: "Local/202@agents"})

	got, err := store.MemberInterfaces(ctx)
	if err != nil {
		t.Fatalf("MemberInterfaces: %v", err)
	}
	want := []string{"Local/202@agents", "PJSIP/101"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("MemberInterfaces = %v, want %v", got, want)
	}
}

func TestDisplayNameFirstMatchWins(t *testing.T) {
	t.Parallel()
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.EnsureMapping(ctx, "101", "Ada"); err != nil {
		t.Fatalf("EnsureMapping: %v", err)
	}
	if err := store.EnsureMapping(ctx, "PJSIP/101", "Wrong"); err != nil {
		t.Fatalf("EnsureMapping: %v", err)
	}

	name, err := store.DisplayName(ctx, "101", "PJSIP/101")
	if err != nil {
		t.Fatalf("DisplayName: %v", err)
	}
	if name != "Ada" {
		t.Fatalf("DisplayName = %q, want Ada", name)
	}

	name, err = store.DisplayName(ctx, "999", "PJSIP/999")
	if err != nil {
		t.Fatalf("DisplayName unmapped: %v", err)
	}
	if name != "" {
		t.Fatalf("DisplayName unmapped = %q, want empty", name)
	}
}

func TestEnsureMappingNeverOverwrites(t *testing.T) {
	t.Parallel()
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.EnsureMapping(ctx, "101", "Ada"); err != nil {
		t.Fatalf("EnsureMapping: %v", err)
	}
	if err := store.EnsureMapping(ctx, "101", "Impostor"); err != nil {
		t.Fatalf("EnsureMapping repeat: %v", err)
	}

	mappings, err := store.Mappings(ctx)
	if err != nil {
		t.Fatalf("Mappings: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("mapping count = %d, want 1", len(mappings))
	}
	if m := mappings[0]; m.DisplayName != "Ada" || m.Source != SourceAuto {
		t.Fatalf("mapping = %+v", m)
	}
}

func TestSeedMappingsOverridesAuto(t *testing.T) {
	t.Parallel()
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.EnsureMapping(ctx, "101", "Auto Name"); err != nil {
		t.Fatalf("EnsureMapping: %v", err)
	}
	if err := store.SeedMappings(ctx, map[string]string{
		"101": "Ada Lovelace",
		"202": "Grace Hopper",
	}); err != nil {
		t.Fatalf("SeedMappings: %v", err)
	}
	// Reconciliation after seeding must not touch the manual rows.
	if err := store.EnsureMapping(ctx, "101", "Auto Again"); err != nil {
		t.Fatalf("EnsureMapping after seed: %v", err)
	}

	index, err := store.NameIndex(ctx)
	if err != nil {
		t.Fatalf("NameIndex: %v", err)
	}
	if index["101"] != "Ada Lovelace" || index["202"] != "Grace Hopper" {
		t.Fatalf("name index = %v", index)
	}

	mappings, _ := store.Mappings(ctx)
	for _, m := range mappings {
		if m.Source != SourceManual {
			t.Fatalf("mapping %s source = %q, want manual", m.Identifier, m.Source)
		}
	}
}

func TestReadOnlyStoreRejectsWrites(t *testing.T) {
	t.Parallel()
	store, path := openTestStore(t)
	ctx := context.Background()
	if err := store.UpsertQueue(ctx, Queue{Name: "support"}); err != nil {
		t.Fatalf("UpsertQueue: %v", err)
	}

	reader, err := Open(Config{Path: path, PoolSize: 1, ReadOnly: true})
	if err != nil {
		t.Fatalf("Open read-only: %v", err)
	}
	defer reader.Close()

	queues, err := reader.Queues(ctx)
	if err != nil {
		t.Fatalf("Queues via reader: %v", err)
	}
	if len(queues) != 1 || queues[0].Name != "support" {
		t.Fatalf("reader queues = %+v", queues)
	}
	if err := reader.UpsertQueue(ctx, Queue{Name: "sales"}); err == nil {
		t.Fatal("read-only store accepted a write")
	}
}
