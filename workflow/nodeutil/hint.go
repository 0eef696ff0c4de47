package nodeutil

import (
	"strings"

	"github.com/BaSui01/lmgateway/workflow"
)

var connectionLabels = map[workflow.ConnectionType]string{
	workflow.ConnectionMain:            "node",
	workflow.ConnectionAIChain:         "AI chain",
	workflow.ConnectionAIAgent:         "AI agent",
	workflow.ConnectionAITool:          "AI tool",
	workflow.ConnectionAIMemory:        "memory",
	workflow.ConnectionAILanguageModel: "language model",
}

// ConnectionHintNoticeField returns the notice shown above a sub-node's
// parameters naming the nodes it can be attached to.
func ConnectionHintNoticeField(types ...workflow.ConnectionType) workflow.Property {
	var labels []string
	seen := make(map[string]bool)
	for _, t := range types {
		label, ok := connectionLabels[t]
		if !ok {
			label = string(t)
		}
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}

	var target string
	switch len(labels) {
	case 0:
		target = "another node"
	case 1:
		target = article(labels[0]) + " " + labels[0]
	default:
		target = article(labels[0]) + " " + strings.Join(labels[:len(labels)-1], ", ") + " or " + labels[len(labels)-1]
	}

	return workflow.Property{
		DisplayName: "This node must be connected to " + target + ". Insert one",
		Name:        "notice",
		Type:        workflow.PropertyNotice,
		Default:     "",
	}
}

func article(word string) string {
	if word == "" {
		return "a"
	}
	// 按读音判断："AI" 读作 ay-eye
	if strings.HasPrefix(word, "AI") || strings.ContainsRune("aeiouAEIOU", rune(word[0])) {
		return "an"
	}
	return "a"
}
