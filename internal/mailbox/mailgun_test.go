package mailbox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"testing"
)

func signMailgun(key, timestamp, token string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp + token))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyMailgunSignature(t *testing.T) {
	t.Parallel()

	key := "signing-key"
	ts := "1767225600"
	token := "rand-token"
	sig := signMailgun(key, ts, token)

	if !VerifyMailgunSignature(key, ts, token, sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifyMailgunSignature(key, ts, token, "deadbeef") {
		t.Fatal("bad signature accepted")
	}
	if VerifyMailgunSignature(key, "other-ts", token, sig) {
		t.Fatal("tampered timestamp accepted")
	}
	if VerifyMailgunSignature("", ts, token, sig) {
		t.Fatal("empty key must reject everything")
	}
	if VerifyMailgunSignature(key, ts, token, "") {
		t.Fatal("empty signature accepted")
	}
}

func TestEmailFromMailgunForm(t *testing.T) {
	t.Parallel()

	form := url.Values{}
	form.Set("Message-Id", "<m2@example.com>")
	form.Set("In-Reply-To", "<m1@example.com>")
	form.Set("References", "<m0@example.com> <m1@example.com>")
	form.Set("subject", "Kendala")
	form.Set("sender", "user@example.com")
	form.Set("from", "Budi <user@example.com>")
	form.Set("stripped-text", "jawaban bersih")
	form.Set("body-plain", "jawaban bersih\n> quoted reply chain")
	form.Set("timestamp", "1767225600")

	e := EmailFromMailgunForm(form)
	if e.MessageID != "<m2@example.com>" || e.InReplyTo != "<m1@example.com>" {
		t.Fatalf("ids: %+v", e)
	}
	if e.From != "user@example.com" || e.SenderName != "Budi" {
		t.Fatalf("sender: from=%q name=%q", e.From, e.SenderName)
	}
	if e.TextBody != "jawaban bersih" {
		t.Fatalf("stripped text not preferred: %q", e.TextBody)
	}
	if e.Date.IsZero() {
		t.Fatal("timestamp not parsed")
	}
}

func TestEmailFromMailgunForm_FallsBackToBodyPlain(t *testing.T) {
	t.Parallel()

	form := url.Values{}
	form.Set("sender", "user@example.com")
	form.Set("body-plain", "isi lengkap")

	e := EmailFromMailgunForm(form)
	if e.TextBody != "isi lengkap" {
		t.Fatalf("body: %q", e.TextBody)
	}
}
