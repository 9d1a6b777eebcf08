package docs

import (
	"reflect"
	"strings"
	"testing"
)

func TestTopics(t *testing.T) {
	want := []string{"config", "exercises", "keys"}
	if got := Topics(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Topics: got %v want %v", got, want)
	}
}

func TestGet(t *testing.T) {
	body, ok := Get(" Keys ")
	if !ok || !strings.HasPrefix(body, "# Keys") {
		t.Fatalf("Get(keys): ok=%v body=%q", ok, body)
	}
	for _, topic := range []string{"", "nope", "../docs", "keys.md"} {
		if _, ok := Get(topic); ok {
			t.Fatalf("Get(%q) should fail", topic)
		}
	}
}
