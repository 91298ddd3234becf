package usecase

import (
	"context"
	"testing"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
)

func newNoteCreate(f *fanoutFixture) *NoteCreateUsecase {
	config := &domain.Config{FQDN: "kagari.example", BaseURL: "https://kagari.example"}
	return NewNoteCreateUsecase(config, f.actors, f.notes, f.engine)
}

func localAuthor(f *fanoutFixture) *domain.Actor {
	actor := &domain.Actor{ID: "local-1", Username: "alice", URI: "https://kagari.example/users/alice"}
	f.actors.add(actor)
	return actor
}

func TestCreateLocalNote(t *testing.T) {
	f := newFanoutFixture()
	uc := newNoteCreate(f)
	author := localAuthor(f)

	note, err := uc.Create(context.Background(), CreateNoteInput{
		AuthorID: author.ID,
		Text:     "hello #world",
	})
	if err != nil {
		t.Fatal(err)
	}
	if note.Visibility != kagari.VisibilityPublic {
		t.Errorf("default visibility = %q, want public", note.Visibility)
	}
	if note.URI != "https://kagari.example/notes/"+note.ID {
		t.Errorf("uri = %q", note.URI)
	}
	if len(note.Tags) != 1 || note.Tags[0] != "world" {
		t.Errorf("tags = %v", note.Tags)
	}
	if f.notes.count() != 1 {
		t.Errorf("stored %d notes", f.notes.count())
	}
}

func TestSilencedAuthorIsDemotedToHome(t *testing.T) {
	f := newFanoutFixture()
	uc := newNoteCreate(f)
	author := &domain.Actor{ID: "local-1", Username: "alice", IsSilenced: true}
	f.actors.add(author)

	note, err := uc.Create(context.Background(), CreateNoteInput{AuthorID: author.ID, Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if note.Visibility != kagari.VisibilityHome {
		t.Errorf("visibility = %q, want home", note.Visibility)
	}
}

func TestReplyInheritsThreadAndMentionsAuthor(t *testing.T) {
	f := newFanoutFixture()
	uc := newNoteCreate(f)
	author := localAuthor(f)

	root := "thread-root"
	f.notes.add(&domain.Note{ID: "parent", ActorID: "parent-author", ThreadID: &root, LocalOnly: true})

	parentID := "parent"
	note, err := uc.Create(context.Background(), CreateNoteInput{
		AuthorID: author.ID,
		Text:     "a reply",
		ReplyID:  &parentID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if note.ThreadID == nil || *note.ThreadID != root {
		t.Errorf("thread = %v, want %q", note.ThreadID, root)
	}
	if !note.LocalOnly {
		t.Error("reply into a local-only thread must stay local")
	}
	if !containsString(note.Mentions, "parent-author") {
		t.Errorf("reply author missing from mentions: %v", note.Mentions)
	}
}

func TestRenoteVisibilityClamping(t *testing.T) {
	f := newFanoutFixture()
	uc := newNoteCreate(f)
	author := localAuthor(f)

	f.notes.add(&domain.Note{ID: "home-note", ActorID: "other", Visibility: kagari.VisibilityHome})
	homeID := "home-note"
	note, err := uc.Create(context.Background(), CreateNoteInput{
		AuthorID: author.ID,
		Text:     "nice one",
		RenoteID: &homeID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if note.Visibility != kagari.VisibilityHome {
		t.Errorf("quote of a home note got visibility %q, want home", note.Visibility)
	}

	f.notes.add(&domain.Note{ID: "fo-note", ActorID: "other", Visibility: kagari.VisibilityFollowers})
	foID := "fo-note"
	if _, err := uc.Create(context.Background(), CreateNoteInput{
		AuthorID: author.ID,
		Text:     "leak",
		RenoteID: &foID,
	}); err == nil {
		t.Error("renoting someone else's followers-only note must fail")
	}
}

func TestSpecifiedVisibleUsersMergeMentions(t *testing.T) {
	f := newFanoutFixture()
	uc := newNoteCreate(f)
	author := localAuthor(f)
	f.actors.add(&domain.Actor{ID: "bob-id", Username: "bob"})

	note, err := uc.Create(context.Background(), CreateNoteInput{
		AuthorID:        author.ID,
		Text:            "psst @bob",
		Visibility:      kagari.VisibilitySpecified,
		VisibleActorIDs: []string{"carol-id"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !containsString(note.VisibleActorIDs, "carol-id") || !containsString(note.VisibleActorIDs, "bob-id") {
		t.Errorf("visible actors = %v, want carol-id and bob-id", note.VisibleActorIDs)
	}
}

func TestEmptyNoteIsRejected(t *testing.T) {
	f := newFanoutFixture()
	uc := newNoteCreate(f)
	author := localAuthor(f)

	if _, err := uc.Create(context.Background(), CreateNoteInput{AuthorID: author.ID}); err == nil {
		t.Error("a note without text, renote or files must be rejected")
	}
}

func TestRemoteAuthorIsRejected(t *testing.T) {
	f := newFanoutFixture()
	uc := newNoteCreate(f)
	remote := &domain.Actor{ID: "r1", Username: "eve", Host: "remote.example"}
	f.actors.add(remote)

	if _, err := uc.Create(context.Background(), CreateNoteInput{AuthorID: "r1", Text: "hi"}); err == nil {
		t.Error("remote actors cannot author local notes")
	}
}
