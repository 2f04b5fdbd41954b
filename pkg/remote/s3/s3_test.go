package s3

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"

	"github.com/safedrive/safedrive-engine/pkg/remote"
	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

type apiErr struct{ code string }

func (e apiErr) Error() string      { return e.code }
func (e apiErr) ErrorCode() string  { return e.code }
func (e apiErr) ErrorMessage() string { return e.code }
func (e apiErr) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

func TestClassifyThrottling(t *testing.T) {
	err := classify("write_blocks", apiErr{code: "SlowDown"})
	if !secerr.Is(err, secerr.KindServiceUnavailable) {
		t.Fatalf("expected ServiceUnavailable, got %v", err)
	}
}

func TestClassifyAccessDenied(t *testing.T) {
	err := classify("read_block", apiErr{code: "AccessDenied"})
	if !secerr.Is(err, secerr.KindAuthentication) {
		t.Fatalf("expected Authentication, got %v", err)
	}
}

func TestClassifyNotFound(t *testing.T) {
	err := classify("read_block", apiErr{code: "NoSuchKey"})
	if !secerr.Is(err, secerr.KindBlockMissing) {
		t.Fatalf("expected BlockMissing, got %v", err)
	}
}

func TestClassifyFallsBackToRequestFailure(t *testing.T) {
	err := classify("read_block", errors.New("mystery failure"))
	if !secerr.Is(err, secerr.KindRequestFailure) {
		t.Fatalf("expected RequestFailure, got %v", err)
	}
}

func TestSplitSessionKey(t *testing.T) {
	prefix := "sessions/tok/"
	folderID, name, ok := splitSessionKey(prefix, prefix+"folder-a/session-1")
	if !ok {
		t.Fatal("expected split to succeed")
	}
	if folderID != "folder-a" || name != "session-1" {
		t.Fatalf("got folder=%q name=%q", folderID, name)
	}
}

func TestSplitSessionKeyNoSlashFails(t *testing.T) {
	prefix := "sessions/tok/"
	if _, _, ok := splitSessionKey(prefix, prefix+"just-a-name"); ok {
		t.Fatal("expected split to fail without a folder/name separator")
	}
}

func TestPendingKeyRoundTrips(t *testing.T) {
	a := pendingKey(remote.Token("tok"), "folder-a")
	b := pendingKey(remote.Token("tok"), "folder-b")
	if a == b {
		t.Fatal("expected distinct folders to produce distinct pending keys")
	}
}
