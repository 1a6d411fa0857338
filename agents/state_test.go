package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeState(t *testing.T) {
	current := ConversationState{
		Messages:  []Message{UserMessage("q")},
		Documents: []string{"old"},
		Route:     []string{RetrieverNode},
		Next:      RetrieverNode,
	}

	merged, err := mergeState(current, ConversationState{
		Messages: []Message{WorkerMessage(AnalystNode, "a")},
		Route:    []string{AnalystNode},
	})
	require.NoError(t, err)
	assert.Len(t, merged.Messages, 2)
	assert.Equal(t, []string{"old"}, merged.Documents, "nil documents keep the current ones")
	assert.Equal(t, []string{RetrieverNode, AnalystNode}, merged.Route)
	assert.Empty(t, merged.Next)
	assert.Len(t, current.Messages, 1, "input state is not modified")

	merged, err = mergeState(merged, ConversationState{Documents: []string{}})
	require.NoError(t, err)
	assert.Empty(t, merged.Documents)
	assert.NotNil(t, merged.Documents)
}

func TestMergeStateVisualizationOnce(t *testing.T) {
	state, err := mergeState(ConversationState{}, ConversationState{Visualization: NewImages([]string{"/a.png"})})
	require.NoError(t, err)
	assert.True(t, state.Visualization.HasImages())

	_, err = mergeState(state, ConversationState{Visualization: NewVisualizationError(NothingToVisualize)})
	assert.ErrorIs(t, err, ErrVisualizationWritten)
}

func TestMergeStateVisualizationIsExclusive(t *testing.T) {
	state, err := mergeState(ConversationState{}, ConversationState{
		Visualization: &Visualization{Images: []string{"/a.png"}, Error: "x"},
	})
	require.NoError(t, err)
	assert.Empty(t, state.Visualization.Error)
}

func TestLatestUserMessage(t *testing.T) {
	s := ConversationState{Messages: []Message{
		UserMessage("first"),
		WorkerMessage(RetrieverNode, "r"),
		UserMessage("second"),
		WorkerMessage(AnalystNode, "a"),
	}}
	m, ok := s.LatestUserMessage()
	require.True(t, ok)
	assert.Equal(t, "second", m.Content)

	_, ok = ConversationState{}.LatestUserMessage()
	assert.False(t, ok)
}

func TestDocumentsText(t *testing.T) {
	s := ConversationState{Documents: []string{"a", "b"}}
	assert.Equal(t, "Here are the raw contents of the data: \na\n---------\nb", s.DocumentsText())
}

func TestValidate(t *testing.T) {
	retrieved := ConversationState{Route: []string{RetrieverNode}}
	analyzed := ConversationState{Route: []string{RetrieverNode, AnalystNode}}
	visualized := ConversationState{Route: []string{RetrieverNode, AnalystNode, VisualizerNode}}

	tests := []struct {
		name  string
		next  string
		state ConversationState
		want  string
	}{
		{"retriever", RetrieverNode, ConversationState{}, RetrieverNode},
		{"analyst without retrieval", AnalystNode, ConversationState{}, AnalystNode},
		{"finish", Finish, ConversationState{}, Finish},
		{"unknown", "poet", analyzed, Finish},
		{"empty", "", analyzed, Finish},
		{"lower case finish", "finish", analyzed, Finish},
		{"visualizer first", VisualizerNode, ConversationState{}, RetrieverNode},
		{"visualizer before analysis", VisualizerNode, retrieved, AnalystNode},
		{"visualizer after analysis only", VisualizerNode, ConversationState{Route: []string{AnalystNode}}, RetrieverNode},
		{"visualizer allowed", VisualizerNode, analyzed, VisualizerNode},
		{"visualizer twice", VisualizerNode, visualized, Finish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.next, tt.state))
		})
	}
}

func TestParseImages(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []string
		ok     bool
	}{
		{"json array", `["/tmp/a.png", "/tmp/b.png"]`, []string{"/tmp/a.png", "/tmp/b.png"}, true},
		{"fenced json", "```json\n[\"/tmp/a.png\"]\n```", []string{"/tmp/a.png"}, true},
		{"python list", `['/tmp/a.png', '/tmp/b.png']`, []string{"/tmp/a.png", "/tmp/b.png"}, true},
		{"lines", "/tmp/a.png\n/tmp/b.png\n", []string{"/tmp/a.png", "/tmp/b.png"}, true},
		{"sentinel", NothingToVisualize, nil, false},
		{"sentinel in prose", "Sorry, Nothing to visualize here.", nil, false},
		{"empty list", "[]", nil, false},
		{"prose", "Here is the chart you asked for.", nil, false},
		{"broken list", "['/tmp/a.png', /tmp/b.png]", nil, false},
		{"empty", "   ", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseImages(tt.answer)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProducedImages(t *testing.T) {
	produced := []string{"/work/out/a.png", "/work/out/b.png"}
	tests := []struct {
		name    string
		claimed []string
		want    []string
	}{
		{"exact", []string{"/work/out/a.png"}, []string{"/work/out/a.png"}},
		{"unclean absolute", []string{"/work/out/../out/b.png"}, []string{"/work/out/b.png"}},
		{"relative by base name", []string{"a.png", "./b.png"}, []string{"/work/out/a.png", "/work/out/b.png"}},
		{"absolute elsewhere", []string{"/home/user/a.png"}, nil},
		{"unknown", []string{"/etc/passwd"}, nil},
		{"duplicates", []string{"a.png", "/work/out/a.png"}, []string{"/work/out/a.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, producedImages(tt.claimed, produced))
		})
	}

	assert.Nil(t, producedImages([]string{"/work/out/a.png"}, nil))
}
