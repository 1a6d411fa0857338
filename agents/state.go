package agents

import (
	"errors"
	"slices"
	"strings"

	"github.com/smallnest/insightgraph/graph"
)

// Role tags a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
	RoleWorker Role = "worker"
)

// ErrVisualizationWritten is returned when a second visualization is merged
// into the same run.
var ErrVisualizationWritten = errors.New("visualization already written in this run")

// Message is one entry of the conversation. Worker messages carry the worker name.
type Message struct {
	Role    Role   `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// WorkerMessage creates a message authored by the named worker.
func WorkerMessage(name, content string) Message {
	return Message{Role: RoleWorker, Name: name, Content: content}
}

// Visualization is the outcome of the visualizer: either image paths or the
// reason no image was produced. Use NewImages and NewVisualizationError.
type Visualization struct {
	Images []string `json:"images,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// NewImages returns a visualization holding image paths.
func NewImages(paths []string) *Visualization {
	return &Visualization{Images: slices.Clone(paths)}
}

// NewVisualizationError returns a visualization holding only a reason.
func NewVisualizationError(reason string) *Visualization {
	return &Visualization{Error: reason}
}

// HasImages reports whether the visualization produced images.
func (v *Visualization) HasImages() bool {
	return v != nil && len(v.Images) > 0
}

// ConversationState is shared by the supervisor and the workers.
//
// Nodes return only what they change: new Messages are appended, a non-nil
// Documents slice replaces the current one, a non-nil Visualization is set
// once, Route entries are appended and Next is overwritten.
type ConversationState struct {
	Messages      []Message      `json:"messages"`
	Documents     []string       `json:"documents"`
	Visualization *Visualization `json:"visualization,omitempty"`
	// Route lists the workers dispatched during the current run.
	Route []string `json:"route,omitempty"`
	// Next is the supervisor's latest decision.
	Next string `json:"next,omitempty"`
}

// NewConversation returns a state holding a single user message.
func NewConversation(query string) ConversationState {
	return ConversationState{Messages: []Message{UserMessage(query)}}
}

// LatestUserMessage returns the most recent user message.
func (s ConversationState) LatestUserMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// LastMessage returns the last message, if any.
func (s ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Visited reports whether worker was dispatched in the current run.
func (s ConversationState) Visited(worker string) bool {
	return slices.Contains(s.Route, worker)
}

// DocumentsText joins the documents the way workers present them to the model.
func (s ConversationState) DocumentsText() string {
	return "Here are the raw contents of the data: \n" + strings.Join(s.Documents, "\n---------\n")
}

func mergeState(current, update ConversationState) (ConversationState, error) {
	if update.Visualization != nil {
		if current.Visualization != nil {
			return current, ErrVisualizationWritten
		}
		v := *update.Visualization
		if len(v.Images) > 0 {
			v.Error = ""
		}
		current.Visualization = &v
	}

	current.Messages = append(slices.Clip(current.Messages), update.Messages...)
	if update.Documents != nil {
		current.Documents = slices.Clone(update.Documents)
	}
	current.Route = append(slices.Clip(current.Route), update.Route...)
	current.Next = update.Next
	return current, nil
}

func newStateSchema() graph.StateSchema[ConversationState] {
	return graph.NewStructSchema(ConversationState{}, mergeState)
}
