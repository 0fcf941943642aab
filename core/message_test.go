package core_test

import (
	"reflect"
	"testing"

	"github.com/engramlabs/engram-go/core"
)

func TestUserTexts(t *testing.T) {
	msgs := []core.Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "an answer"},
		{Role: "user", Blocks: []core.ContentBlock{
			core.NewTextBlock("block one"),
			{Type: "tool_result", Text: "ignored"},
			core.NewTextBlock("block two"),
		}},
		{Role: "system", Content: "ignored too"},
	}

	got := core.UserTexts(msgs)
	want := []string{"first question", "block one", "block two"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UserTexts = %v, want %v", got, want)
	}
}

func TestUserTexts_ContentWinsOverBlocks(t *testing.T) {
	msgs := []core.Message{
		{Role: "user", Content: "plain body", Blocks: []core.ContentBlock{core.NewTextBlock("block body")}},
	}
	got := core.UserTexts(msgs)
	if len(got) != 1 || got[0] != "plain body" {
		t.Errorf("UserTexts = %v", got)
	}
}

func TestUserTexts_Empty(t *testing.T) {
	if got := core.UserTexts(nil); len(got) != 0 {
		t.Errorf("UserTexts(nil) = %v", got)
	}
}
