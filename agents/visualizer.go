package agents

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/smallnest/insightgraph/log"
	"github.com/smallnest/insightgraph/prebuilt"
	"github.com/smallnest/insightgraph/sandbox"
	"github.com/smallnest/insightgraph/tool"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// NothingToVisualize is the visualizer's answer when no chart was produced.
const NothingToVisualize = "nothing to visualize"

// DefaultVisualizerMaxIterations bounds the model turns of one visualization.
const DefaultVisualizerMaxIterations = 6

const visualizerPrompt = `You are a developer tasked with visualizing the data.
Write python code that visualizes the data using matplotlib.pyplot and run it with the python_repl tool.
Your code always starts with:
    import matplotlib
    matplotlib.use('agg')
    import matplotlib.pyplot as plt

Save every image to a file in the directory named by the INSIGHTGRAPH_ARTIFACT_DIR environment
variable and print the full path of every saved file.

If the code succeeds, answer with a JSON array of the paths of the generated files and nothing else.
If there is nothing to visualize, answer exactly "` + NothingToVisualize + `".`

// Visualizer turns the documents in scope into charts through a bounded tool
// loop over a sandboxed Python executor.
type Visualizer struct {
	model         llms.Model
	executor      sandbox.Executor
	maxIterations int
}

// NewVisualizer creates a visualizer. maxIterations <= 0 selects
// DefaultVisualizerMaxIterations.
func NewVisualizer(model llms.Model, executor sandbox.Executor, maxIterations int) *Visualizer {
	if maxIterations <= 0 {
		maxIterations = DefaultVisualizerMaxIterations
	}
	return &Visualizer{model: model, executor: executor, maxIterations: maxIterations}
}

func (v *Visualizer) node(ctx context.Context, state ConversationState) (ConversationState, error) {
	user, ok := state.LatestUserMessage()
	if !ok {
		return ConversationState{}, &StepError{Node: VisualizerNode, Err: ErrNoUserMessage}
	}

	python := tool.NewPython(v.executor)
	agent, err := prebuilt.CreateToolAgent(v.model, []tools.Tool{python},
		prebuilt.WithSystemPrompt(visualizerPrompt),
		prebuilt.WithMaxIterations(v.maxIterations),
	)
	if err != nil {
		return ConversationState{}, &StepError{Node: VisualizerNode, Err: err}
	}

	result, err := agent.Invoke(ctx, prebuilt.ToolAgentState{Messages: []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, user.Content),
		llms.TextParts(llms.ChatMessageTypeHuman, state.DocumentsText()),
	}})
	if err != nil {
		if isConvergence(err) {
			return ConversationState{}, err
		}
		return ConversationState{}, &StepError{Node: VisualizerNode, Err: err}
	}

	answer := result.FinalAnswer()
	claimed, ok := ParseImages(answer)
	if !ok {
		log.Info("visualizer: no images in answer %q", answer)
		return ConversationState{Visualization: NewVisualizationError(NothingToVisualize)}, nil
	}
	images := producedImages(claimed, python.Artifacts())
	if len(images) == 0 {
		log.Warn("visualizer: none of %v was produced by the sandbox", claimed)
		return ConversationState{Visualization: NewVisualizationError(NothingToVisualize)}, nil
	}
	log.Info("visualizer: %d images", len(images))
	return ConversationState{Visualization: NewImages(images)}, nil
}

// producedImages keeps the claimed paths that name a file the sandbox reported
// as produced, returning the sandbox's path for each. Absolute claims must
// match exactly; relative ones are matched by base name.
func producedImages(claimed, produced []string) []string {
	exact := make(map[string]string, len(produced))
	byBase := make(map[string]string, len(produced))
	for _, p := range produced {
		clean := filepath.Clean(p)
		exact[clean] = p
		if _, dup := byBase[filepath.Base(clean)]; !dup {
			byBase[filepath.Base(clean)] = p
		}
	}

	var images []string
	seen := map[string]bool{}
	for _, c := range claimed {
		clean := filepath.Clean(c)
		var (
			path string
			ok   bool
		)
		if filepath.IsAbs(clean) {
			path, ok = exact[clean]
		} else {
			path, ok = byBase[filepath.Base(clean)]
		}
		if !ok {
			log.Debug("visualizer: dropping %s, not produced by the sandbox", c)
			continue
		}
		if !seen[path] {
			seen[path] = true
			images = append(images, path)
		}
	}
	return images
}

// ParseImages reads the visualizer's final answer: a JSON array, a Python list
// literal or one path per line. The sentinel, an empty list or anything
// unparseable yields false.
func ParseImages(answer string) ([]string, bool) {
	s := strings.TrimSpace(answer)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```python")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if s == "" || strings.Contains(strings.ToLower(s), NothingToVisualize) {
		return nil, false
	}

	var paths []string
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		if err := json.Unmarshal([]byte(s), &paths); err != nil {
			var ok bool
			if paths, ok = parseListLiteral(s); !ok {
				return nil, false
			}
		}
	} else {
		for line := range strings.SplitSeq(s, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !looksLikePath(line) {
				return nil, false
			}
			paths = append(paths, line)
		}
	}

	if len(paths) == 0 {
		return nil, false
	}
	return paths, true
}

// parseListLiteral handles ['a.png', "b.png"], the form print() gives a list.
func parseListLiteral(s string) ([]string, bool) {
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, true
	}
	var out []string
	for item := range strings.SplitSeq(inner, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if len(item) < 2 || (item[0] != '\'' && item[0] != '"') || item[len(item)-1] != item[0] {
			return nil, false
		}
		out = append(out, item[1:len(item)-1])
	}
	return out, true
}

func looksLikePath(s string) bool {
	return strings.ContainsAny(s, `/\`) && filepath.Ext(s) != "" && !strings.ContainsAny(s, "\t")
}
