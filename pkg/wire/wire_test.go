package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{
		KindListActions, KindCallAction, KindListResources,
		KindReadResource, KindListPrompts, KindGetPrompt,
	} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	for _, k := range []Kind{"", "call_action", "list", "ping"} {
		if k.Valid() {
			t.Errorf("%q should be invalid", k)
		}
	}
}

func TestOk(t *testing.T) {
	resp := Ok(map[string]int{"a": 1})
	if !resp.OK || resp.ErrorKind != "" {
		t.Fatalf("resp = %+v", resp)
	}
	var got map[string]int
	if err := json.Unmarshal(resp.Result, &got); err != nil || got["a"] != 1 {
		t.Errorf("result = %s (%v)", resp.Result, err)
	}
}

func TestOk_unserializableResult(t *testing.T) {
	resp := Ok(make(chan int))
	if resp.OK {
		t.Fatal("channel result should fail")
	}
	if resp.ErrorKind != ErrHandler {
		t.Errorf("kind = %s", resp.ErrorKind)
	}
}

// TestFail_messageCarriesNoKindPrefix guards against the kind prefix
// doubling when an error envelope round-trips through Fail and Err.
func TestFail_messageCarriesNoKindPrefix(t *testing.T) {
	resp := Fail(Errorf(ErrUnknownAction, "unknown action %q", "x"))
	if resp.OK {
		t.Fatal("must not be ok")
	}
	if resp.ErrorKind != ErrUnknownAction {
		t.Errorf("kind = %s", resp.ErrorKind)
	}
	if want := `unknown action "x"`; resp.Message != want {
		t.Errorf("message = %q, want %q", resp.Message, want)
	}

	err := resp.Err()
	if want := `unknown_action: unknown action "x"`; err.Error() != want {
		t.Errorf("reconstructed = %q, want %q", err.Error(), want)
	}
}

func TestFail_plainErrorBecomesHandlerError(t *testing.T) {
	resp := Fail(errors.New("disk on fire"))
	if resp.ErrorKind != ErrHandler || resp.Message != "disk on fire" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestErr_successIsNil(t *testing.T) {
	if err := Ok("fine").Err(); err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestWrap_preservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrHandler, fmt.Errorf("step two: %w", cause))
	if !errors.Is(err, cause) {
		t.Error("cause lost through Wrap")
	}
	if !IsKind(err, ErrHandler) {
		t.Errorf("kind = %s", KindOf(err))
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(Errorf(ErrTimeout, "late")); got != ErrTimeout {
		t.Errorf("KindOf = %s", got)
	}
	if got := KindOf(errors.New("plain")); got != ErrHandler {
		t.Errorf("KindOf(plain) = %s", got)
	}
	if got := KindOf(fmt.Errorf("outer: %w", Errorf(ErrNotFound, "gone"))); got != ErrNotFound {
		t.Errorf("KindOf(wrapped) = %s", got)
	}
}

func TestResponseJSON_shape(t *testing.T) {
	raw, err := json.Marshal(Fail(Errorf(ErrInvalidArguments, "missing name")))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m["ok"] != false || m["errorKind"] != "invalid_arguments" {
		t.Errorf("envelope = %s", raw)
	}
	if _, present := m["result"]; present {
		t.Error("error envelope must omit result")
	}
}
