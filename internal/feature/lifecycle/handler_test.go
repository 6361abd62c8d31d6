package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"exam_countdown_bot/internal/domain"
	"exam_countdown_bot/internal/store"
)

func newTestHandler(t *testing.T, registrar *fakeRegistrar, replies *fakeStickerReplier) *Handler {
	t.Helper()

	hookLogger, _ := logtest.NewNullLogger()
	return NewHandler(registrar, replies, logrus.NewEntry(hookLogger))
}

func TestHandleFollowRegistersUserAndWelcomes(t *testing.T) {
	registrar := newFakeRegistrar()
	replies := &fakeStickerReplier{}
	handler := newTestHandler(t, registrar, replies)

	if err := handler.HandleFollow(context.Background(), "U123", "token-1"); err != nil {
		t.Fatalf("HandleFollow returned error: %v", err)
	}

	call := registrar.single(t)
	if call.chatID != "U123" || call.kind != domain.KindUser {
		t.Fatalf("unexpected registration %+v", call)
	}

	if len(replies.calls) != 1 {
		t.Fatalf("expected one welcome reply, got %d", len(replies.calls))
	}
	reply := replies.calls[0]
	if reply.token != "token-1" {
		t.Fatalf("expected reply token token-1, got %s", reply.token)
	}
	if !strings.Contains(reply.text, "設定考試日期") {
		t.Fatalf("expected welcome to mention the set-date command, got %q", reply.text)
	}
	if reply.packageID != welcomeStickerPackageID || reply.stickerID != welcomeStickerID {
		t.Fatalf("unexpected sticker %s/%s", reply.packageID, reply.stickerID)
	}
}

func TestHandleJoinRegistersGroup(t *testing.T) {
	registrar := newFakeRegistrar()
	replies := &fakeStickerReplier{}
	handler := newTestHandler(t, registrar, replies)

	if err := handler.HandleJoin(context.Background(), "C456", "token-2"); err != nil {
		t.Fatalf("HandleJoin returned error: %v", err)
	}

	call := registrar.single(t)
	if call.chatID != "C456" || call.kind != domain.KindGroup {
		t.Fatalf("unexpected registration %+v", call)
	}

	if len(replies.calls) != 1 || !strings.Contains(replies.calls[0].text, "群組") {
		t.Fatalf("expected group welcome reply, got %+v", replies.calls)
	}
}

func TestHandleFollowTwiceStaysIdempotent(t *testing.T) {
	registrar := newFakeRegistrar()
	replies := &fakeStickerReplier{}
	handler := newTestHandler(t, registrar, replies)

	for i := 0; i < 2; i++ {
		if err := handler.HandleFollow(context.Background(), "U123", "token"); err != nil {
			t.Fatalf("HandleFollow run %d returned error: %v", i, err)
		}
	}

	// Registration is delegated to the merge-upsert; the handler only calls
	// EnsureChat and must not issue any destructive writes.
	if len(registrar.calls) != 2 {
		t.Fatalf("expected 2 EnsureChat calls, got %d", len(registrar.calls))
	}
	for _, call := range registrar.calls {
		if call.chatID != "U123" || call.kind != domain.KindUser {
			t.Fatalf("unexpected registration %+v", call)
		}
	}
}

func TestHandleFollowStoreUnavailable(t *testing.T) {
	registrar := newFakeRegistrar()
	registrar.err = store.ErrUnavailable
	replies := &fakeStickerReplier{}
	handler := newTestHandler(t, registrar, replies)

	err := handler.HandleFollow(context.Background(), "U123", "token")
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected wrapped ErrUnavailable, got %v", err)
	}

	if len(replies.calls) != 0 {
		t.Fatalf("expected no welcome when registration failed, got %+v", replies.calls)
	}
}

func TestHandleJoinWelcomeFailureIsSwallowed(t *testing.T) {
	registrar := newFakeRegistrar()
	replies := &fakeStickerReplier{err: errors.New("reply token expired")}
	handler := newTestHandler(t, registrar, replies)

	if err := handler.HandleJoin(context.Background(), "C456", "token"); err != nil {
		t.Fatalf("expected delivery failure to be swallowed, got %v", err)
	}

	if len(registrar.calls) != 1 {
		t.Fatalf("expected registration to happen before the failed reply")
	}
}

type ensureCall struct {
	chatID string
	kind   string
}

type fakeRegistrar struct {
	calls []ensureCall
	seen  map[string]bool
	err   error
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{seen: make(map[string]bool)}
}

func (f *fakeRegistrar) EnsureChat(_ context.Context, chatID, kind string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}

	f.calls = append(f.calls, ensureCall{chatID: chatID, kind: kind})
	created := !f.seen[chatID]
	f.seen[chatID] = true

	return created, nil
}

func (f *fakeRegistrar) single(t *testing.T) ensureCall {
	t.Helper()

	if len(f.calls) != 1 {
		t.Fatalf("expected exactly one EnsureChat call, got %d", len(f.calls))
	}

	return f.calls[0]
}

type stickerReply struct {
	token     string
	text      string
	packageID string
	stickerID string
}

type fakeStickerReplier struct {
	calls []stickerReply
	err   error
}

func (f *fakeStickerReplier) ReplyTextWithSticker(replyToken, text, packageID, stickerID string) error {
	f.calls = append(f.calls, stickerReply{
		token:     replyToken,
		text:      text,
		packageID: packageID,
		stickerID: stickerID,
	})
	return f.err
}
