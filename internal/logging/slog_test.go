package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNew_TextInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "development")

	log.Debug(context.Background(), "dbg", "a", 1)
	log.Info(context.Background(), "inf", "b", 2)

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "msg=dbg", "a=1", "level=INFO", "b=2", "service=hybrid-auth"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestNew_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "production")

	log.Debug(context.Background(), "hidden")
	log.Warn(context.Background(), "visible", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug must be filtered in production:\n%s", out)
	}
	if !strings.Contains(out, `"msg":"visible"`) || !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("expected JSON record, got:\n%s", out)
	}
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "development").With("req_id", "123")
	log.Error(context.Background(), "failed", "err", "boom")

	out := buf.String()
	for _, want := range []string{"level=ERROR", "req_id=123", "err=boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
