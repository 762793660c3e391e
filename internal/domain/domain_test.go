package domain

import (
	"encoding/json"
	"testing"
)

func TestImageUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Image
	}{
		{"null", `null`, Image{}},
		{"bare url", `"https://cdn.test/a.png"`, Image{URL: "https://cdn.test/a.png", ThumbURL: "https://cdn.test/a.png"}},
		{"object", `{"url":"https://cdn.test/a.png","thumbUrl":"https://cdn.test/a_t.png"}`, Image{URL: "https://cdn.test/a.png", ThumbURL: "https://cdn.test/a_t.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Image
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestImageBest(t *testing.T) {
	if got := (Image{URL: "full"}).Best(); got != "full" {
		t.Errorf("Best() = %q, want full", got)
	}
	if got := (Image{URL: "full", ThumbURL: "thumb"}).Best(); got != "thumb" {
		t.Errorf("Best() = %q, want thumb", got)
	}
}

func TestUserProfileDecodesMongoID(t *testing.T) {
	var p UserProfile
	if err := json.Unmarshal([]byte(`{"_id":"u1","name":"Ada","role":"admin","image":null}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "u1" || p.Role != RoleAdmin || !p.Role.Valid() {
		t.Errorf("unexpected profile %+v", p)
	}
	if Role("wizard").Valid() {
		t.Error("unknown role should be invalid")
	}
}

func TestMessageSides(t *testing.T) {
	m := Message{Sender: UserProfile{ID: "a"}, Receiver: UserProfile{ID: "b"}}
	if !m.Involves("a") || !m.Involves("b") || m.Involves("c") {
		t.Error("Involves should match either side only")
	}
	if m.CounterpartOf("a").ID != "b" || m.CounterpartOf("b").ID != "a" {
		t.Error("CounterpartOf returned the wrong side")
	}
}

func TestPaginationPages(t *testing.T) {
	tests := []struct {
		p    Pagination
		want int
	}{
		{Pagination{Limit: 10, Total: 0}, 0},
		{Pagination{Limit: 0, Total: 5}, 0},
		{Pagination{Limit: 10, Total: 10}, 1},
		{Pagination{Limit: 10, Total: 11}, 2},
	}
	for _, tt := range tests {
		if got := tt.p.Pages(); got != tt.want {
			t.Errorf("%+v.Pages() = %d, want %d", tt.p, got, tt.want)
		}
	}
}
