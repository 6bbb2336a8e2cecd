package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pulsemeet/pulsemeet/internal/domain"
)

func participant(id, name string) *domain.Participant {
	return domain.NewParticipant(id, domain.PresenceInput{UserName: name}, false)
}

func TestRegistryJoinCreatesRoomOnce(t *testing.T) {
	reg := NewRegistry()

	_, _, created, _ := reg.Join("alpha", "c1", participant("c1", "Alice"))
	if !created {
		t.Fatal("first join should create the room")
	}

	_, _, created, _ = reg.Join("alpha", "c2", participant("c2", "Bob"))
	if created {
		t.Fatal("second join should reuse the room")
	}
}

func TestRegistryJoinReturnsPreJoinSnapshot(t *testing.T) {
	reg := NewRegistry()

	reg.Join("alpha", "c1", participant("c1", "Alice"))
	existing, _, _, _ := reg.Join("alpha", "c2", participant("c2", "Bob"))

	if len(existing) != 1 || existing[0] != "c1" {
		t.Fatalf("expected pre-join snapshot [c1], got %v", existing)
	}
}

func TestRegistryDuplicateJoinKeepsOriginalRecord(t *testing.T) {
	reg := NewRegistry()

	reg.Join("alpha", "c1", participant("c1", "Alice"))
	_, joined, _, already := reg.Join("alpha", "c1", participant("c1", "Impostor"))

	if !already {
		t.Fatal("duplicate join not detected")
	}
	if joined.DisplayName != "Alice" {
		t.Fatalf("duplicate join replaced record: %+v", joined)
	}
	if occ := reg.Occupants("alpha"); len(occ) != 1 {
		t.Fatalf("duplicate join grew occupant list: %v", occ)
	}
}

func TestRegistryLeaveRemovesAndReportsRemaining(t *testing.T) {
	reg := NewRegistry()

	reg.Join("alpha", "c1", participant("c1", "Alice"))
	reg.Join("alpha", "c2", participant("c2", "Bob"))

	remaining, removed, ok := reg.Leave("alpha", "c1")
	if !ok {
		t.Fatal("leave of member failed")
	}
	if removed.DisplayName != "Alice" {
		t.Fatalf("wrong participant removed: %+v", removed)
	}
	if len(remaining) != 1 || remaining[0] != "c2" {
		t.Fatalf("unexpected remaining list: %v", remaining)
	}

	if _, ok := reg.RoomOf("c1"); ok {
		t.Fatal("reverse index not cleared on leave")
	}
}

func TestRegistryLastLeaveDeletesRoomState(t *testing.T) {
	reg := NewRegistry()

	reg.Join("alpha", "c1", participant("c1", "Alice"))
	reg.AppendChat("alpha", domain.ChatMessage{ConnectionID: "c1", Payload: json.RawMessage(`"hi"`)})

	remaining, _, ok := reg.Leave("alpha", "c1")
	if !ok || len(remaining) != 0 {
		t.Fatalf("unexpected leave result: ok=%v remaining=%v", ok, remaining)
	}

	rooms, conns := reg.Counts()
	if rooms != 0 || conns != 0 {
		t.Fatalf("room state leaked: %d rooms, %d connections", rooms, conns)
	}
	if tr := reg.Transcript("alpha"); tr != nil {
		t.Fatalf("transcript outlived its room: %v", tr)
	}
}

func TestRegistryLeaveOfNonMember(t *testing.T) {
	reg := NewRegistry()
	reg.Join("alpha", "c1", participant("c1", "Alice"))

	if _, _, ok := reg.Leave("alpha", "ghost"); ok {
		t.Fatal("leave of non-member should fail")
	}
	if _, _, ok := reg.Leave("missing", "c1"); ok {
		t.Fatal("leave from missing room should fail")
	}
}

func TestRegistryRenamePreservesOrderAndRecord(t *testing.T) {
	reg := NewRegistry()

	reg.Join("alpha", "c1", participant("c1", "Alice"))
	reg.Join("alpha", "c2", participant("c2", "Bob"))

	before, _ := reg.Participant("alpha", "c1")

	p, ok := reg.Rename("alpha", "c1", "c9")
	if !ok {
		t.Fatal("rename failed")
	}
	if p.ConnectionID != "c9" || p.DisplayName != "Alice" {
		t.Fatalf("record not carried over: %+v", p)
	}
	if !p.JoinedAt.Equal(before.JoinedAt) {
		t.Fatal("join time lost across rename")
	}

	occ := reg.Occupants("alpha")
	if len(occ) != 2 || occ[0] != "c9" || occ[1] != "c2" {
		t.Fatalf("join order broken: %v", occ)
	}

	if code, ok := reg.RoomOf("c9"); !ok || code != "alpha" {
		t.Fatal("reverse index not updated for new id")
	}
	if _, ok := reg.RoomOf("c1"); ok {
		t.Fatal("reverse index still maps old id")
	}
}

func TestRegistryRenameUnknown(t *testing.T) {
	reg := NewRegistry()
	reg.Join("alpha", "c1", participant("c1", "Alice"))

	if _, ok := reg.Rename("alpha", "ghost", "c9"); ok {
		t.Fatal("rename of unknown connection should fail")
	}
	if _, ok := reg.Rename("missing", "c1", "c9"); ok {
		t.Fatal("rename in missing room should fail")
	}
}

func TestRegistryParticipantsInJoinOrder(t *testing.T) {
	reg := NewRegistry()

	for _, id := range []string{"c3", "c1", "c2"} {
		reg.Join("alpha", id, participant(id, "user-"+id))
	}

	roster := reg.Participants("alpha")
	if len(roster) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(roster))
	}
	for i, want := range []string{"c3", "c1", "c2"} {
		if roster[i].ConnectionID != want {
			t.Fatalf("roster[%d] = %s, want %s", i, roster[i].ConnectionID, want)
		}
	}
}

func TestRegistryInfoSnapshot(t *testing.T) {
	reg := NewRegistry()

	reg.Join("alpha", "c1", participant("c1", "Alice"))
	reg.AppendChat("alpha", domain.ChatMessage{ConnectionID: "c1", SentAt: time.Now()})

	info, ok := reg.Info("alpha")
	if !ok {
		t.Fatal("info of live room failed")
	}
	if info.MeetingCode != "alpha" || info.OccupantCount != 1 || len(info.Participants) != 1 {
		t.Fatalf("unexpected snapshot: %+v", info)
	}

	if _, ok := reg.Info("missing"); ok {
		t.Fatal("info of missing room should fail")
	}
}
