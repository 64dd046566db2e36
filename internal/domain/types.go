package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type EntityKind string

const (
	EntityKindAgent        EntityKind = "agent"
	EntityKindTool         EntityKind = "tool"
	EntityKindRelationship EntityKind = "relationship"
)

type RelationshipType string

const (
	RelationshipCalls        RelationshipType = "calls"
	RelationshipCollaborates RelationshipType = "collaborates"
	RelationshipSequential   RelationshipType = "sequential"
	RelationshipParallel     RelationshipType = "parallel"
)

type TestStatus string

const (
	TestStatusPassed  TestStatus = "passed"
	TestStatusFailed  TestStatus = "failed"
	TestStatusWarning TestStatus = "warning"
	TestStatusError   TestStatus = "error"
)

// Failed reports whether the status should be rendered as a failure.
func (s TestStatus) Failed() bool {
	return s == TestStatusFailed || s == TestStatusError
}

type AnalysisStatus string

const (
	AnalysisStatusQueued     AnalysisStatus = "queued"
	AnalysisStatusProcessing AnalysisStatus = "processing"
	AnalysisStatusCompleted  AnalysisStatus = "completed"
	AnalysisStatusFailed     AnalysisStatus = "failed"
)

// PerformanceHints are optional measured or estimated figures attached to an
// agent or tool. Zero fields mean "unknown" and fall back to calculator defaults.
type PerformanceHints struct {
	InputTokens  int     `json:"input_tokens,omitempty" yaml:"input_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty" yaml:"output_tokens,omitempty"`
	LatencyMS    float64 `json:"latency_ms,omitempty" yaml:"latency_ms,omitempty"`
	SuccessRate  float64 `json:"success_rate,omitempty" yaml:"success_rate,omitempty"`
}

type ModelConfig struct {
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

type Agent struct {
	ID                string            `json:"id" yaml:"id"`
	Name              string            `json:"name" yaml:"name"`
	Type              string            `json:"type,omitempty" yaml:"type,omitempty"`
	FilePath          string            `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	Prompt            string            `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	SystemInstruction string            `json:"system_instruction,omitempty" yaml:"system_instruction,omitempty"`
	ModelConfig       ModelConfig       `json:"model_config" yaml:"model_config"`
	Tools             NameList          `json:"tools,omitempty" yaml:"tools,omitempty"`
	Hyperparameters   map[string]any    `json:"hyperparameters,omitempty" yaml:"hyperparameters,omitempty"`
	Objective         string            `json:"objective,omitempty" yaml:"objective,omitempty"`
	CodeSnippet       string            `json:"code_snippet,omitempty" yaml:"code_snippet,omitempty"`
	Performance       *PerformanceHints `json:"performance,omitempty" yaml:"performance,omitempty"`
}

// DisplayName falls back to the ID when the analysis produced no name.
func (a Agent) DisplayName() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.ID
}

type ToolParameter struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type Tool struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	FilePath    string            `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	Parameters  []ToolParameter   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	ReturnType  string            `json:"return_type,omitempty" yaml:"return_type,omitempty"`
	Code        string            `json:"code,omitempty" yaml:"code,omitempty"`
	Summary     string            `json:"summary,omitempty" yaml:"summary,omitempty"`
	Performance *PerformanceHints `json:"performance,omitempty" yaml:"performance,omitempty"`
}

// Key is the identifier used inside composite tool node IDs. Tools without an
// ID are keyed by name.
func (t Tool) Key() string {
	if strings.TrimSpace(t.ID) != "" {
		return t.ID
	}
	return t.Name
}

type RelationshipMetrics struct {
	BandwidthKBps    float64 `json:"bandwidth_kbps,omitempty" yaml:"bandwidth_kbps,omitempty"`
	FrequencyPerMin  float64 `json:"frequency_per_min,omitempty" yaml:"frequency_per_min,omitempty"`
	ErrorRatePercent float64 `json:"error_rate_percent,omitempty" yaml:"error_rate_percent,omitempty"`
	PayloadKB        float64 `json:"payload_kb,omitempty" yaml:"payload_kb,omitempty"`
}

type Relationship struct {
	ID          string               `json:"id" yaml:"id"`
	FromAgentID string               `json:"from_agent_id" yaml:"from_agent_id"`
	ToAgentID   string               `json:"to_agent_id" yaml:"to_agent_id"`
	Type        RelationshipType     `json:"type,omitempty" yaml:"type,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	DataFlow    string               `json:"data_flow,omitempty" yaml:"data_flow,omitempty"`
	Metrics     *RelationshipMetrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

type Repository struct {
	Owner       string `json:"owner,omitempty" yaml:"owner,omitempty"`
	RepoName    string `json:"repo_name,omitempty" yaml:"repo_name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// AnalysisData is the payload produced by the external analysis service.
type AnalysisData struct {
	Agents        []Agent        `json:"agents" yaml:"agents"`
	Tools         []Tool         `json:"tools" yaml:"tools"`
	Relationships []Relationship `json:"relationships" yaml:"relationships"`
	Repository    Repository     `json:"repository,omitempty" yaml:"repository,omitempty"`
}

type TestTarget struct {
	Type EntityKind `json:"type" yaml:"type"`
	ID   string     `json:"id" yaml:"id"`
	Name string     `json:"name,omitempty" yaml:"name,omitempty"`
}

type TestCase struct {
	ID                string     `json:"id" yaml:"id"`
	SessionID         string     `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Name              string     `json:"name,omitempty" yaml:"name,omitempty"`
	Category          string     `json:"category,omitempty" yaml:"category,omitempty"`
	Description       string     `json:"description,omitempty" yaml:"description,omitempty"`
	Target            TestTarget `json:"target" yaml:"target"`
	TestInput         string     `json:"test_input,omitempty" yaml:"test_input,omitempty"`
	ExpectedBehavior  string     `json:"expected_behavior,omitempty" yaml:"expected_behavior,omitempty"`
	SuccessCriteria   string     `json:"success_criteria,omitempty" yaml:"success_criteria,omitempty"`
	HighlightElements []string   `json:"highlight_elements,omitempty" yaml:"highlight_elements,omitempty"`
}

// Key returns the session-qualified identifier of the test case.
func (tc TestCase) Key() string {
	return ResultKey(tc.SessionID, tc.ID)
}

type CodeFix struct {
	FilePath      string `json:"file_path,omitempty"`
	LineNumber    int    `json:"line_number,omitempty"`
	CurrentCode   string `json:"current_code,omitempty"`
	SuggestedCode string `json:"suggested_code,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

type Recommendation struct {
	Severity string   `json:"severity,omitempty"`
	Issue    string   `json:"issue,omitempty"`
	Fix      *CodeFix `json:"fix,omitempty"`
}

type ResultDetails struct {
	Summary     string   `json:"summary,omitempty"`
	Details     string   `json:"details,omitempty"`
	IssuesFound []string `json:"issues_found,omitempty"`
}

type TestResult struct {
	ID              string           `json:"id,omitempty"`
	TestID          string           `json:"test_id"`
	SessionID       string           `json:"session_id,omitempty"`
	Status          TestStatus       `json:"status"`
	ExecutionTime   float64          `json:"execution_time,omitempty"`
	Results         *ResultDetails   `json:"results,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Key returns the session-qualified identifier of the result.
func (r TestResult) Key() string {
	return ResultKey(r.SessionID, r.TestID)
}

// ResultKey builds the composite "sessionId-testId" key. Without a session the
// canonical test ID is returned unchanged.
func ResultKey(sessionID, testID string) string {
	if strings.TrimSpace(sessionID) == "" {
		return testID
	}
	return sessionID + "-" + testID
}

type Analysis struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
	Status      AnalysisStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Data        AnalysisData   `json:"agent_data" yaml:"agent_data"`
	TestCases   []TestCase     `json:"test_cases,omitempty" yaml:"test_cases,omitempty"`
	RunningTest string         `json:"running_test,omitempty" yaml:"-"`
	CreatedAt   time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time      `json:"updated_at" yaml:"-"`
}

type ExportRecord struct {
	ID         int64     `json:"id"`
	AnalysisID string    `json:"analysis_id"`
	Path       string    `json:"path"`
	Format     string    `json:"format"`
	Bytes      int       `json:"bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// NameList is a list of tool names. The analysis service emits either plain
// strings or objects carrying a "name" field; both decode to names.
type NameList []string

func (l *NameList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var single string
		if err2 := json.Unmarshal(data, &single); err2 == nil {
			*l = NameList{single}
			return nil
		}
		return fmt.Errorf("decode name list: %w", err)
	}
	out := make(NameList, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			if strings.TrimSpace(name) != "" {
				out = append(out, name)
			}
			continue
		}
		var obj struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		switch {
		case strings.TrimSpace(obj.Name) != "":
			out = append(out, obj.Name)
		case strings.TrimSpace(obj.ID) != "":
			out = append(out, obj.ID)
		}
	}
	*l = out
	return nil
}

func (l *NameList) UnmarshalYAML(unmarshal func(any) error) error {
	var items []any
	if err := unmarshal(&items); err != nil {
		var single string
		if err2 := unmarshal(&single); err2 == nil {
			*l = NameList{single}
			return nil
		}
		return fmt.Errorf("decode name list: %w", err)
	}
	out := make(NameList, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				out = append(out, v)
			}
		case map[string]any:
			if name, ok := v["name"].(string); ok && strings.TrimSpace(name) != "" {
				out = append(out, name)
			} else if id, ok := v["id"].(string); ok && strings.TrimSpace(id) != "" {
				out = append(out, id)
			}
		}
	}
	*l = out
	return nil
}
