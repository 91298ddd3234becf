package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

func TestInboxJobRoundTrip(t *testing.T) {
	body := []byte(`{"id":"https://remote.example/activities/1","type":"Create"}`)
	orig, err := http.NewRequest(http.MethodPost, "https://kagari.example/inbox", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	orig.Host = "kagari.example"
	orig.Header.Set("Signature", `keyId="https://remote.example/users/alice#main-key",signature="deadbeef"`)
	orig.Header.Set("Date", "Mon, 01 Sep 2025 00:00:00 GMT")
	orig.Header.Set("Digest", "SHA-256=abc")

	job := InboxJob{
		Method:  orig.Method,
		URL:     orig.URL.String(),
		Headers: orig.Header.Clone(),
		Body:    body,
	}
	job.Headers.Set("Host", orig.Host)

	raw, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	var decoded InboxJob
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	rebuilt, err := decoded.request(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt.Method != http.MethodPost {
		t.Errorf("method = %s", rebuilt.Method)
	}
	if rebuilt.Host != "kagari.example" {
		t.Errorf("host = %s", rebuilt.Host)
	}
	for _, h := range []string{"Signature", "Date", "Digest"} {
		if rebuilt.Header.Get(h) != orig.Header.Get(h) {
			t.Errorf("header %s = %q, want %q", h, rebuilt.Header.Get(h), orig.Header.Get(h))
		}
	}

	got, err := io.ReadAll(rebuilt.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, body) {
		t.Error("body lost in round trip")
	}
}
