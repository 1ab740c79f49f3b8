package provider

import (
	"reflect"
	"testing"
)

func TestParseResponseObject(t *testing.T) {
	content := `{"keywords":["btc","bitcoin 100k"],"entityGroups":[["btc","bitcoin"],["coinbase"]]}`
	res, err := ParseResponse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Keywords, []string{"btc", "bitcoin 100k"}) {
		t.Fatalf("keywords = %v", res.Keywords)
	}
	want := [][]string{{"btc", "bitcoin"}, {"coinbase"}}
	if !reflect.DeepEqual(res.EntityGroups, want) {
		t.Fatalf("entityGroups = %v", res.EntityGroups)
	}
}

func TestParseResponseSnakeCaseGroups(t *testing.T) {
	content := `{"keywords":["fed"],"entity_groups":[["fed","fomc"]]}`
	res, err := ParseResponse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.EntityGroups) != 1 || res.EntityGroups[0][1] != "fomc" {
		t.Fatalf("entityGroups = %v", res.EntityGroups)
	}
}

func TestParseResponseMarkdownFence(t *testing.T) {
	content := "Here you go:\n```json\n{\"keywords\": [\"eth\"], \"entityGroups\": [[\"eth\", \"ethereum\"]]}\n```"
	res, err := ParseResponse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Keywords) != 1 || res.Keywords[0] != "eth" {
		t.Fatalf("keywords = %v", res.Keywords)
	}
}

func TestParseResponseLegacyArray(t *testing.T) {
	res, err := ParseResponse(`["btc", "bitcoin", " "]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Keywords, []string{"btc", "bitcoin"}) {
		t.Fatalf("keywords = %v", res.Keywords)
	}
	if len(res.EntityGroups) != 0 {
		t.Fatalf("legacy array must not produce entity groups, got %v", res.EntityGroups)
	}
}

func TestParseResponseLegacyEntities(t *testing.T) {
	res, err := ParseResponse(`{"keywords":["cz"],"entities":["cz","binance"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Entities, []string{"cz", "binance"}) {
		t.Fatalf("entities = %v", res.Entities)
	}
}

func TestParseResponseNoJSON(t *testing.T) {
	if _, err := ParseResponse("I could not produce keywords for this event."); err == nil {
		t.Fatal("expected error for prose-only response")
	}
}

func TestParseResponseEmbeddedBraces(t *testing.T) {
	content := `Sure: {"keywords":["say \"hi\"","a{b}c"],"entityGroups":[]} hope that helps`
	res, err := ParseResponse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Keywords) != 2 || res.Keywords[1] != "a{b}c" {
		t.Fatalf("keywords = %v", res.Keywords)
	}
}
