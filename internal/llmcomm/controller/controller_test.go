package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/longkey1/llmcomm/internal/llmcomm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	loaded []*llmcomm.Conversation
	saves  int
	last   []*llmcomm.Conversation
}

func (h *fakeHistory) LoadAll() []*llmcomm.Conversation { return h.loaded }

func (h *fakeHistory) SaveAll(conversations []*llmcomm.Conversation) {
	h.saves++
	h.last = make([]*llmcomm.Conversation, len(conversations))
	for i, conv := range conversations {
		cp := *conv
		cp.Messages = append([]llmcomm.Message(nil), conv.Messages...)
		h.last[i] = &cp
	}
}

// activeHistory also remembers the current conversation.
type activeHistory struct {
	fakeHistory
	active      string
	activeSaves int
}

func (h *activeHistory) LoadActive() string { return h.active }

func (h *activeHistory) SaveActive(id string) {
	h.activeSaves++
	h.active = id
}

type fakeKeys struct {
	key   string
	saved []string
}

func (k *fakeKeys) LoadKey() string { return k.key }

func (k *fakeKeys) SaveKey(key string) string {
	k.saved = append(k.saved, key)
	k.key = key
	if key == "" {
		return ""
	}
	return "fake"
}

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	seen   [][]llmcomm.Message
	apiKey string
	model  string
	during func()
}

func (f *fakeCompleter) Complete(ctx context.Context, apiKey, model string, messages []llmcomm.Message) (string, error) {
	f.calls++
	f.apiKey = apiKey
	f.model = model
	f.seen = append(f.seen, append([]llmcomm.Message(nil), messages...))
	if f.during != nil {
		f.during()
	}
	return f.reply, f.err
}

type fixture struct {
	history   *fakeHistory
	keys      *fakeKeys
	completer *fakeCompleter
	ctrl      *Controller
}

func newFixture(t *testing.T, key string, loaded ...*llmcomm.Conversation) *fixture {
	t.Helper()
	f := &fixture{
		history:   &fakeHistory{loaded: loaded},
		keys:      &fakeKeys{key: key},
		completer: &fakeCompleter{reply: "Hi there"},
	}
	f.ctrl = New(Options{
		History:   f.history,
		Keys:      f.keys,
		Completer: f.completer,
		Model:     "gpt-4o-mini",
	})
	return f
}

func conversationWith(title string, messages ...llmcomm.Message) *llmcomm.Conversation {
	conv := llmcomm.NewConversation()
	conv.Title = title
	conv.Messages = append(conv.Messages, messages...)
	return conv
}

func TestNewWithEmptyHistoryCreatesConversation(t *testing.T) {
	f := newFixture(t, "")

	convs := f.ctrl.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, llmcomm.DefaultTitle, convs[0].Title)
	assert.Same(t, convs[0], f.ctrl.Current())
	assert.Empty(t, f.ctrl.Messages())
	assert.Equal(t, 1, f.history.saves)
}

func TestNewSelectsFirstLoadedConversation(t *testing.T) {
	first := conversationWith("First", llmcomm.NewUserMessage("a"), llmcomm.NewAssistantMessage("b"))
	second := conversationWith("Second")
	f := newFixture(t, "sk-test", first, second)

	assert.Same(t, first, f.ctrl.Current())
	assert.Equal(t, first.Messages, f.ctrl.Messages())
	assert.Equal(t, "sk-test", f.ctrl.APIKey())
	assert.Equal(t, 0, f.history.saves)
}

func TestNewConversationInsertsAtHead(t *testing.T) {
	existing := conversationWith("Existing")
	f := newFixture(t, "", existing)

	conv := f.ctrl.NewConversation()
	convs := f.ctrl.Conversations()
	require.Len(t, convs, 2)
	assert.Same(t, conv, convs[0])
	assert.Same(t, existing, convs[1])
	assert.Same(t, conv, f.ctrl.Current())
	assert.Equal(t, llmcomm.DefaultTitle, conv.Title)
	assert.Equal(t, 1, f.history.saves)
}

func TestSelectConversation(t *testing.T) {
	first := conversationWith("First")
	second := conversationWith("Second", llmcomm.NewUserMessage("q"), llmcomm.NewAssistantMessage("a"))
	f := newFixture(t, "", first, second)

	assert.True(t, f.ctrl.SelectConversation(second.ID))
	assert.Same(t, second, f.ctrl.Current())
	assert.Equal(t, second.Messages, f.ctrl.Messages())

	assert.False(t, f.ctrl.SelectConversation("unknown"))
	assert.Same(t, second, f.ctrl.Current())
	assert.Equal(t, 0, f.history.saves)
}

func TestDeleteConversation(t *testing.T) {
	tests := []struct {
		name        string
		deleteIndex int
		wantCurrent int // index into the remaining list
		wantLen     int
	}{
		{name: "delete current selects new head", deleteIndex: 0, wantCurrent: 0, wantLen: 2},
		{name: "delete other keeps current", deleteIndex: 2, wantCurrent: 0, wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			convs := []*llmcomm.Conversation{conversationWith("A"), conversationWith("B"), conversationWith("C")}
			f := newFixture(t, "", convs...)
			target := convs[tt.deleteIndex]

			f.ctrl.DeleteConversation(target.ID)

			remaining := f.ctrl.Conversations()
			require.Len(t, remaining, tt.wantLen)
			assert.NotContains(t, remaining, target)
			assert.Same(t, remaining[tt.wantCurrent], f.ctrl.Current())
			assert.Equal(t, 1, f.history.saves)
		})
	}
}

func TestDeleteOnlyConversationCreatesNewOne(t *testing.T) {
	only := conversationWith("Only", llmcomm.NewUserMessage("hello"))
	f := newFixture(t, "", only)

	f.ctrl.DeleteConversation(only.ID)

	convs := f.ctrl.Conversations()
	require.Len(t, convs, 1)
	assert.NotEqual(t, only.ID, convs[0].ID)
	assert.Equal(t, llmcomm.DefaultTitle, convs[0].Title)
	assert.Same(t, convs[0], f.ctrl.Current())
	assert.Empty(t, f.ctrl.Messages())
	require.Len(t, f.history.last, 1)
	assert.Equal(t, convs[0].ID, f.history.last[0].ID)
}

func TestDeleteUnknownConversationIsNoop(t *testing.T) {
	f := newFixture(t, "", conversationWith("A"))

	f.ctrl.DeleteConversation("unknown")
	assert.Len(t, f.ctrl.Conversations(), 1)
	assert.Equal(t, 0, f.history.saves)
}

func TestSendMessageSuccess(t *testing.T) {
	f := newFixture(t, "sk-test")
	conv := f.ctrl.Current()

	err := f.ctrl.SendMessage(context.Background(), "  Explain quantum tunneling in simple terms  ")
	require.NoError(t, err)

	assert.Equal(t, []llmcomm.Message{
		llmcomm.NewUserMessage("Explain quantum tunneling in simple terms"),
		llmcomm.NewAssistantMessage("Hi there"),
	}, conv.Messages)
	assert.Equal(t, conv.Messages, f.ctrl.Messages())
	assert.Equal(t, "Explain quantum tunneling in s...", conv.Title)
	assert.False(t, f.ctrl.Sending())
	assert.Empty(t, f.ctrl.LastError())

	require.Equal(t, 1, f.completer.calls)
	assert.Equal(t, "sk-test", f.completer.apiKey)
	assert.Equal(t, "gpt-4o-mini", f.completer.model)
	assert.Equal(t, []llmcomm.Message{llmcomm.NewUserMessage("Explain quantum tunneling in simple terms")}, f.completer.seen[0])

	// initial NewConversation, checkpoint before the call, final save
	assert.Equal(t, 3, f.history.saves)
	require.Len(t, f.history.last, 1)
	assert.Len(t, f.history.last[0].Messages, 2)
}

func TestSendMessageTitleOnlyFromFirstMessage(t *testing.T) {
	f := newFixture(t, "sk-test")
	conv := f.ctrl.Current()

	require.NoError(t, f.ctrl.SendMessage(context.Background(), "First question"))
	require.NoError(t, f.ctrl.SendMessage(context.Background(), "A different and much longer second question"))

	assert.Equal(t, "First question", conv.Title)
	assert.Len(t, conv.Messages, 4)
	assert.Len(t, f.completer.seen[1], 3, "the full history is sent")
}

func TestSendMessageCheckpointsBeforeCall(t *testing.T) {
	f := newFixture(t, "sk-test")
	var savedDuringCall []*llmcomm.Conversation
	var sendingDuringCall bool
	f.completer.during = func() {
		savedDuringCall = f.history.last
		sendingDuringCall = f.ctrl.Sending()
	}

	require.NoError(t, f.ctrl.SendMessage(context.Background(), "hello"))

	require.Len(t, savedDuringCall, 1)
	assert.Equal(t, []llmcomm.Message{llmcomm.NewUserMessage("hello")}, savedDuringCall[0].Messages)
	assert.Equal(t, "hello", savedDuringCall[0].Title)
	assert.True(t, sendingDuringCall)
}

func TestSendMessageFailureRollsBack(t *testing.T) {
	existing := conversationWith("Chat", llmcomm.NewUserMessage("one"), llmcomm.NewAssistantMessage("two"))
	f := newFixture(t, "sk-test", existing)
	f.completer.err = &llmcomm.APIError{StatusCode: 401, Message: "Incorrect API key provided"}

	err := f.ctrl.SendMessage(context.Background(), "three")
	require.Error(t, err)
	assert.True(t, llmcomm.IsAPIError(err))

	assert.Len(t, existing.Messages, 2)
	assert.Len(t, f.ctrl.Messages(), 2)
	assert.Equal(t, "API error: Incorrect API key provided", f.ctrl.LastError())
	assert.False(t, f.ctrl.Sending())
	assert.Equal(t, "Chat", existing.Title)

	// checkpoint with the user message, then the rolled back state
	assert.Equal(t, 2, f.history.saves)
	assert.Len(t, f.history.last[0].Messages, 2)
}

func TestSendMessageFailureOnFirstMessage(t *testing.T) {
	f := newFixture(t, "sk-test")
	f.completer.err = errors.New("boom")
	conv := f.ctrl.Current()

	err := f.ctrl.SendMessage(context.Background(), "hello")
	require.Error(t, err)
	assert.Empty(t, conv.Messages)
	assert.NotEmpty(t, f.ctrl.LastError())
}

func TestSendMessageClearsPreviousError(t *testing.T) {
	f := newFixture(t, "sk-test")
	f.completer.err = errors.New("boom")
	require.Error(t, f.ctrl.SendMessage(context.Background(), "hello"))
	require.Equal(t, "boom", f.ctrl.LastError())

	f.completer.err = nil
	require.NoError(t, f.ctrl.SendMessage(context.Background(), "hello again"))
	assert.Empty(t, f.ctrl.LastError())
}

func TestSendMessageNoops(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		input string
	}{
		{name: "no api key", key: "", input: "hello"},
		{name: "blank api key", key: "   ", input: "hello"},
		{name: "empty input", key: "sk-test", input: ""},
		{name: "whitespace input", key: "sk-test", input: " \t\n "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.key)
			saves := f.history.saves
			changes := 0
			f.ctrl.Subscribe(func(Change) { changes++ })

			err := f.ctrl.SendMessage(context.Background(), tt.input)
			assert.NoError(t, err)
			assert.Equal(t, 0, f.completer.calls)
			assert.Empty(t, f.ctrl.Current().Messages)
			assert.Empty(t, f.ctrl.Messages())
			assert.Equal(t, saves, f.history.saves)
			assert.Equal(t, 0, changes)
			assert.False(t, f.ctrl.CanSend(tt.input))
		})
	}
}

func TestSendMessageWhileSendingIsNoop(t *testing.T) {
	f := newFixture(t, "sk-test")
	var nestedErr error
	var canSend bool
	f.completer.during = func() {
		canSend = f.ctrl.CanSend("second")
		nestedErr = f.ctrl.SendMessage(context.Background(), "second")
	}

	require.NoError(t, f.ctrl.SendMessage(context.Background(), "first"))

	assert.False(t, canSend)
	assert.NoError(t, nestedErr)
	assert.Equal(t, 1, f.completer.calls)
	assert.Equal(t, []llmcomm.Message{
		llmcomm.NewUserMessage("first"),
		llmcomm.NewAssistantMessage("Hi there"),
	}, f.ctrl.Current().Messages)
}

func TestCanSend(t *testing.T) {
	f := newFixture(t, "sk-test")
	assert.True(t, f.ctrl.CanSend("hi"))
	assert.False(t, f.ctrl.CanSend("  "))

	f.ctrl.SetAPIKey("")
	assert.False(t, f.ctrl.CanSend("hi"))
}

func TestSetAPIKey(t *testing.T) {
	f := newFixture(t, "")
	var changes []Change
	f.ctrl.Subscribe(func(ch Change) { changes = append(changes, ch) })

	backend := f.ctrl.SetAPIKey("  sk-new  ")
	assert.Equal(t, "fake", backend)
	assert.Equal(t, "sk-new", f.ctrl.APIKey())
	assert.True(t, f.ctrl.HasAPIKey())
	assert.Equal(t, []string{"sk-new"}, f.keys.saved)
	assert.Equal(t, []Change{ChangeAPIKey}, changes)

	f.ctrl.SetAPIKey("")
	assert.False(t, f.ctrl.HasAPIKey())
	assert.Equal(t, []string{"sk-new", ""}, f.keys.saved)
}

func TestSetModel(t *testing.T) {
	f := newFixture(t, "sk-test")
	var changes []Change
	f.ctrl.Subscribe(func(ch Change) { changes = append(changes, ch) })

	f.ctrl.SetModel("gpt-4o")
	f.ctrl.SetModel(" ")
	f.ctrl.SetModel("gpt-4o")
	assert.Equal(t, "gpt-4o", f.ctrl.Model())
	assert.Equal(t, []Change{ChangeModel}, changes)

	require.NoError(t, f.ctrl.SendMessage(context.Background(), "hi"))
	assert.Equal(t, "gpt-4o", f.completer.model)
}

func TestRenameConversation(t *testing.T) {
	conv := conversationWith("Old")
	f := newFixture(t, "", conv)

	assert.True(t, f.ctrl.RenameConversation(conv.ID, "  New name "))
	assert.Equal(t, "New name", conv.Title)
	assert.Equal(t, 1, f.history.saves)

	assert.True(t, f.ctrl.RenameConversation(conv.ID, "   "))
	assert.Equal(t, llmcomm.DefaultTitle, conv.Title)
	assert.Equal(t, llmcomm.DefaultTitle, f.history.last[0].Title)

	assert.False(t, f.ctrl.RenameConversation("unknown", "x"))
	assert.Equal(t, 2, f.history.saves)
}

func TestSubscribeNotifications(t *testing.T) {
	f := newFixture(t, "sk-test")
	var changes []Change
	unsubscribe := f.ctrl.Subscribe(func(ch Change) { changes = append(changes, ch) })

	require.NoError(t, f.ctrl.SendMessage(context.Background(), "hello"))
	assert.Contains(t, changes, ChangeTitle)
	assert.Contains(t, changes, ChangeMessages)
	assert.Contains(t, changes, ChangeSending)
	assert.NotContains(t, changes, ChangeError)

	changes = nil
	f.completer.err = errors.New("boom")
	require.Error(t, f.ctrl.SendMessage(context.Background(), "again"))
	assert.Contains(t, changes, ChangeError)

	changes = nil
	f.ctrl.NewConversation()
	assert.Contains(t, changes, ChangeConversations)
	assert.Contains(t, changes, ChangeCurrent)

	unsubscribe()
	changes = nil
	f.ctrl.NewConversation()
	assert.Empty(t, changes)
}

func TestUnsubscribeDuringNotify(t *testing.T) {
	f := newFixture(t, "")
	var first, second int
	var unsubscribeFirst func()
	unsubscribeFirst = f.ctrl.Subscribe(func(Change) {
		first++
		unsubscribeFirst()
	})
	f.ctrl.Subscribe(func(Change) { second++ })

	f.ctrl.SetModel("gpt-4o")
	f.ctrl.SetModel("gpt-4.1")
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestFindConversation(t *testing.T) {
	a := conversationWith("A")
	a.ID = "abcd1111-0000-4000-8000-000000000000"
	b := conversationWith("B")
	b.ID = "abcd2222-0000-4000-8000-000000000000"
	c := conversationWith("C")
	c.ID = "ef012345-0000-4000-8000-000000000000"
	c.UpdatedAt = time.Now().Add(time.Hour)
	f := newFixture(t, "", a, b, c)

	conv, err := f.ctrl.FindConversation(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, conv)

	conv, err = f.ctrl.FindConversation("abcd2")
	require.NoError(t, err)
	assert.Same(t, b, conv)

	conv, err = f.ctrl.FindConversation("latest")
	require.NoError(t, err)
	assert.Same(t, c, conv)

	_, err = f.ctrl.FindConversation("abcd")
	var ambiguous *AmbiguousIDError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Matches, 2)
	assert.Contains(t, err.Error(), "abcd1111")

	_, err = f.ctrl.FindConversation("abc")
	assert.Error(t, err)

	_, err = f.ctrl.FindConversation("ffff")
	assert.Error(t, err)
}

func TestNewRestoresActiveConversation(t *testing.T) {
	first := conversationWith("First")
	second := conversationWith("Second", llmcomm.NewUserMessage("q"))
	history := &activeHistory{fakeHistory: fakeHistory{loaded: []*llmcomm.Conversation{first, second}}, active: second.ID}

	ctrl := New(Options{History: history, Keys: &fakeKeys{}, Completer: &fakeCompleter{}})
	assert.Same(t, second, ctrl.Current())
	assert.Equal(t, second.Messages, ctrl.Messages())
	assert.Equal(t, 0, history.activeSaves)
	assert.Equal(t, 0, history.saves)

	require.True(t, ctrl.SelectConversation(first.ID))
	assert.Equal(t, first.ID, history.active)
	assert.Equal(t, 1, history.activeSaves)

	conv := ctrl.NewConversation()
	assert.Equal(t, conv.ID, history.active)
}

func TestNewIgnoresMissingActiveConversation(t *testing.T) {
	first := conversationWith("First")
	history := &activeHistory{fakeHistory: fakeHistory{loaded: []*llmcomm.Conversation{first}}, active: "gone"}

	ctrl := New(Options{History: history, Keys: &fakeKeys{}, Completer: &fakeCompleter{}})
	assert.Same(t, first, ctrl.Current())
	assert.Equal(t, first.ID, history.active)
}

func TestModelIsPerConversation(t *testing.T) {
	tuned := conversationWith("Tuned")
	tuned.Model = "gpt-4.1"
	plain := conversationWith("Plain")
	f := newFixture(t, "sk-test", tuned, plain)
	var changes []Change
	f.ctrl.Subscribe(func(ch Change) { changes = append(changes, ch) })

	assert.Equal(t, "gpt-4.1", f.ctrl.Model())
	assert.Equal(t, "gpt-4o-mini", f.ctrl.DefaultModel())

	require.True(t, f.ctrl.SelectConversation(plain.ID))
	assert.Equal(t, "gpt-4o-mini", f.ctrl.Model())
	assert.Contains(t, changes, ChangeModel)

	f.ctrl.SetModel("gpt-4o")
	assert.Equal(t, "gpt-4o", plain.Model)
	assert.Equal(t, "gpt-4o-mini", f.ctrl.DefaultModel())
	require.Equal(t, 1, f.history.saves)
	assert.Equal(t, "gpt-4o", f.history.last[1].Model)

	require.True(t, f.ctrl.SelectConversation(tuned.ID))
	assert.Equal(t, "gpt-4.1", f.ctrl.Model())
	require.NoError(t, f.ctrl.SendMessage(context.Background(), "hi"))
	assert.Equal(t, "gpt-4.1", f.completer.model)
	assert.Equal(t, []string{"gpt-4.1"}, tuned.ModelsUsed)

	conv := f.ctrl.NewConversation()
	assert.Empty(t, conv.Model)
	assert.Equal(t, "gpt-4o-mini", f.ctrl.Model())
}

func TestSendMessageFailureDoesNotRecordModel(t *testing.T) {
	f := newFixture(t, "sk-test")
	f.completer.err = errors.New("boom")

	require.Error(t, f.ctrl.SendMessage(context.Background(), "hi"))
	assert.Empty(t, f.ctrl.Current().ModelsUsed)
}

func TestDeleteConversations(t *testing.T) {
	a, b, c, d := conversationWith("A"), conversationWith("B"), conversationWith("C"), conversationWith("D")
	f := newFixture(t, "", a, b, c, d)

	removed := f.ctrl.DeleteConversations([]string{a.ID, c.ID, "unknown"})
	assert.Equal(t, 2, removed)
	assert.Equal(t, []*llmcomm.Conversation{b, d}, f.ctrl.Conversations())
	assert.Same(t, b, f.ctrl.Current())
	assert.Equal(t, 1, f.history.saves)
	require.Len(t, f.history.last, 2)

	assert.Equal(t, 0, f.ctrl.DeleteConversations([]string{"unknown"}))
	assert.Equal(t, 1, f.history.saves)

	assert.Equal(t, 2, f.ctrl.DeleteConversations([]string{b.ID, d.ID}))
	convs := f.ctrl.Conversations()
	require.Len(t, convs, 1)
	assert.Same(t, convs[0], f.ctrl.Current())
	assert.Equal(t, llmcomm.DefaultTitle, convs[0].Title)
	assert.Equal(t, 2, f.history.saves)
}

func TestSummarize(t *testing.T) {
	parent := conversationWith("Trip planning",
		llmcomm.NewUserMessage("where to go"),
		llmcomm.NewAssistantMessage("Kyoto"))
	child := conversationWith("Summary: Trip planning",
		llmcomm.NewUserMessage(SummaryPrefix+"old summary"),
		llmcomm.NewUserMessage("when to go"),
		llmcomm.NewAssistantMessage("autumn"))
	child.ParentID = parent.ID
	child.Model = "gpt-4.1"
	f := newFixture(t, "sk-test", child, parent)
	f.completer.reply = "  They picked Kyoto in autumn.  "

	conv, err := f.ctrl.Summarize(context.Background(), child.ID)
	require.NoError(t, err)

	assert.Equal(t, child.ID, conv.ParentID)
	assert.Equal(t, "gpt-4.1", conv.Model)
	assert.Equal(t, []string{"gpt-4.1"}, conv.ModelsUsed)
	require.Len(t, conv.Messages, 1)
	assert.True(t, conv.Messages[0].IsUser())
	assert.Equal(t, SummaryPrefix+"They picked Kyoto in autumn.", conv.Messages[0].Content)
	assert.Equal(t, "Summary: Summary: Trip plannin...", conv.Title)

	assert.Same(t, conv, f.ctrl.Current())
	assert.Same(t, conv, f.ctrl.Conversations()[0])
	assert.Len(t, f.ctrl.Conversations(), 3)
	assert.Equal(t, 1, f.history.saves)
	assert.False(t, f.ctrl.Sending())

	assert.Equal(t, "gpt-4.1", f.completer.model)
	require.Len(t, f.completer.seen, 1)
	require.Len(t, f.completer.seen[0], 1)
	request := f.completer.seen[0][0].Content
	assert.Contains(t, request, "[Message 1] User: where to go")
	assert.Contains(t, request, "[Message 2] Assistant: Kyoto")
	assert.Contains(t, request, "[Message 3] User: when to go")
	assert.Contains(t, request, "[Message 4] Assistant: autumn")
	assert.NotContains(t, request, "old summary")

	assert.Len(t, child.Messages, 3, "source conversation must not change")
}

func TestSummarizeErrors(t *testing.T) {
	empty := conversationWith("Empty")
	full := conversationWith("Full", llmcomm.NewUserMessage("hi"), llmcomm.NewAssistantMessage("hello"))

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t, "sk-test", full)
		_, err := f.ctrl.Summarize(context.Background(), "unknown")
		assert.Error(t, err)
	})

	t.Run("no messages", func(t *testing.T) {
		f := newFixture(t, "sk-test", empty)
		_, err := f.ctrl.Summarize(context.Background(), empty.ID)
		assert.ErrorIs(t, err, ErrNothingToSummarize)
		assert.Equal(t, 0, f.completer.calls)
	})

	t.Run("no api key", func(t *testing.T) {
		f := newFixture(t, "", full)
		_, err := f.ctrl.Summarize(context.Background(), full.ID)
		assert.ErrorIs(t, err, llmcomm.ErrAuthRequired)
		assert.Equal(t, 0, f.completer.calls)
	})

	t.Run("completion fails", func(t *testing.T) {
		f := newFixture(t, "sk-test", full)
		f.completer.err = errors.New("boom")

		_, err := f.ctrl.Summarize(context.Background(), full.ID)
		assert.EqualError(t, err, "boom")
		assert.Equal(t, "boom", f.ctrl.LastError())
		assert.Len(t, f.ctrl.Conversations(), 1)
		assert.Same(t, full, f.ctrl.Current())
		assert.Equal(t, 0, f.history.saves)
	})

	t.Run("while sending", func(t *testing.T) {
		f := newFixture(t, "sk-test", full)
		var nested error
		f.completer.during = func() {
			_, nested = f.ctrl.Summarize(context.Background(), full.ID)
		}
		require.NoError(t, f.ctrl.SendMessage(context.Background(), "again"))
		assert.ErrorIs(t, nested, ErrSending)
	})
}

func TestFindWithoutController(t *testing.T) {
	a := conversationWith("A")
	a.ID = "abcd1111-0000-4000-8000-000000000000"

	conv, err := Find([]*llmcomm.Conversation{a}, "abcd1")
	require.NoError(t, err)
	assert.Same(t, a, conv)

	_, err = Find(nil, "latest")
	assert.Error(t, err)
}

func TestChangeString(t *testing.T) {
	assert.Equal(t, "messages", ChangeMessages.String())
	assert.Equal(t, "unknown", Change(99).String())
}
