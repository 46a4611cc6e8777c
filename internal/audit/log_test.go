package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/logging"
)

func testLog(t *testing.T) *Log {
	t.Helper()
	log, err := Open(t.TempDir(), logging.NopLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return log
}

func testRecord(action Action) Record {
	return Record{
		Mode:    "propose",
		Actor:   "user",
		Action:  action,
		Target:  "notes.md",
		PlanID:  "a1b2c3d4",
		Outcome: OutcomeSuccess,
	}
}

func TestAppendChainsEntries(t *testing.T) {
	log := testLog(t)

	first, err := log.Append(testRecord(ActionPlanCreated))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	second, err := log.Append(testRecord(ActionPlanApproved))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("seq = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.PrevHash != "" {
		t.Errorf("first entry PrevHash = %q, want empty", first.PrevHash)
	}
	if second.PrevHash != first.Hash {
		t.Errorf("second entry PrevHash = %q, want %q", second.PrevHash, first.Hash)
	}
	if first.Hash == "" || second.Hash == "" {
		t.Error("entries must carry non-empty hashes")
	}
	if !strings.HasPrefix(first.ID, "evt-") {
		t.Errorf("entry ID = %q, want evt- prefix", first.ID)
	}
}

func TestAppendRejectsInvalidRecord(t *testing.T) {
	log := testLog(t)

	tests := []struct {
		name string
		rec  Record
	}{
		{"missing mode", Record{Actor: "user", Action: ActionPlanCreated, Outcome: OutcomeSuccess}},
		{"missing actor", Record{Mode: "propose", Action: ActionPlanCreated, Outcome: OutcomeSuccess}},
		{"unknown action", Record{Mode: "propose", Actor: "user", Action: Action("teleported"), Outcome: OutcomeSuccess}},
		{"unknown outcome", Record{Mode: "propose", Actor: "user", Action: ActionPlanCreated, Outcome: Outcome("maybe")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := log.Append(tt.rec); err == nil {
				t.Error("expected error for invalid record")
			}
		})
	}
}

func TestAppendPersistsAcrossReopen(t *testing.T) {
	dataDir := t.TempDir()

	log, err := Open(dataDir, logging.NopLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := log.Append(testRecord(ActionPlanCreated)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	reopened, err := Open(dataDir, logging.NopLogger())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	entry, err := reopened.Append(testRecord(ActionPlanApproved))
	if err != nil {
		t.Fatalf("Append after reopen failed: %v", err)
	}
	if entry.Seq != 2 {
		t.Errorf("seq after reopen = %d, want 2", entry.Seq)
	}
	if entry.PrevHash == "" {
		t.Error("entry after reopen must link to the existing chain")
	}
}

func TestConcurrentAppendsKeepChainIntact(t *testing.T) {
	log := testLog(t)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := log.Append(testRecord(ActionStepApplied)); err != nil {
				t.Errorf("Append failed: %v", err)
			}
		}()
	}
	wg.Wait()

	result, err := log.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.OK {
		t.Errorf("chain broken after concurrent appends: %s", result.Message)
	}
	if result.Entries != writers {
		t.Errorf("Entries = %d, want %d", result.Entries, writers)
	}
}

func TestList(t *testing.T) {
	log := testLog(t)

	actions := []Action{ActionPlanCreated, ActionPlanApproved, ActionPlanCompleted}
	for _, a := range actions {
		if _, err := log.Append(testRecord(a)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	t.Run("returns all in append order", func(t *testing.T) {
		entries, err := log.List(0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(entries) != len(actions) {
			t.Fatalf("List returned %d entries, want %d", len(entries), len(actions))
		}
		for i, e := range entries {
			if e.Action != actions[i] {
				t.Errorf("entry %d action = %q, want %q", i, e.Action, actions[i])
			}
		}
	})

	t.Run("positive limit keeps the newest entries", func(t *testing.T) {
		entries, err := log.List(2)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("List returned %d entries, want 2", len(entries))
		}
		if entries[0].Action != ActionPlanApproved || entries[1].Action != ActionPlanCompleted {
			t.Errorf("limited List returned %q, %q", entries[0].Action, entries[1].Action)
		}
	})

	t.Run("missing file yields empty", func(t *testing.T) {
		empty := testLog(t)
		entries, err := empty.List(0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("List on missing file returned %d entries", len(entries))
		}
	})
}

func TestVerifyDetectsTampering(t *testing.T) {
	dataDir := t.TempDir()
	log, err := Open(dataDir, logging.NopLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, a := range []Action{ActionPlanCreated, ActionPlanApproved, ActionStepApplied, ActionPlanCompleted} {
		if _, err := log.Append(testRecord(a)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// Rewrite the second line with an edited target, keeping its stored hash.
	path := filepath.Join(dataDir, dirName, fileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	var tampered Entry
	if err := json.Unmarshal([]byte(lines[1]), &tampered); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	tampered.Target = "/etc/passwd"
	edited, err := json.Marshal(tampered)
	if err != nil {
		t.Fatalf("marshal tampered entry: %v", err)
	}
	lines[1] = string(edited)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write tampered log: %v", err)
	}

	result, err := log.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.OK {
		t.Fatal("Verify passed on a tampered log")
	}
	if result.BrokenSeq != 2 {
		t.Errorf("BrokenSeq = %d, want 2", result.BrokenSeq)
	}

	verr := result.Err()
	if verr == nil {
		t.Fatal("Err() = nil for broken chain")
	}
	if !errors.Is(verr, errors.ErrChainBroken) {
		t.Errorf("Err() = %v, want ErrChainBroken", verr)
	}
	var intErr *errors.IntegrityError
	if !errors.As(verr, &intErr) {
		t.Fatalf("Err() type = %T, want *IntegrityError", verr)
	}
	if intErr.Seq != 2 {
		t.Errorf("IntegrityError.Seq = %d, want 2", intErr.Seq)
	}
}

func TestVerifyDetectsDeletedEntry(t *testing.T) {
	dataDir := t.TempDir()
	log, err := Open(dataDir, logging.NopLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, a := range []Action{ActionPlanCreated, ActionPlanApproved, ActionPlanCompleted} {
		if _, err := log.Append(testRecord(a)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// Drop the middle line.
	path := filepath.Join(dataDir, dirName, fileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	pruned := []string{lines[0], lines[2]}
	if err := os.WriteFile(path, []byte(strings.Join(pruned, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write pruned log: %v", err)
	}

	result, err := log.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.OK {
		t.Fatal("Verify passed after an entry was removed")
	}
}

func TestVerifyEmptyLogIsIntact(t *testing.T) {
	log := testLog(t)

	result, err := log.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.OK {
		t.Errorf("empty log verify OK = false: %s", result.Message)
	}
	if result.Entries != 0 {
		t.Errorf("Entries = %d, want 0", result.Entries)
	}
	if result.Err() != nil {
		t.Errorf("Err() = %v, want nil", result.Err())
	}
}

func TestVerifyIsIdempotent(t *testing.T) {
	log := testLog(t)
	if _, err := log.Append(testRecord(ActionModeChanged)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		result, err := log.Verify()
		if err != nil {
			t.Fatalf("Verify pass %d failed: %v", i, err)
		}
		if !result.OK {
			t.Fatalf("Verify pass %d reported broken chain: %s", i, result.Message)
		}
	}
}
