package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const examDateLayout = "2006-01-02"

// GeminiProvider extracts structured announcement data with a
// schema-constrained Gemini call. Free-form text parsing is deliberately
// not supported: the model is forced to emit JSON matching responseSchema.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

// Make sure we conform to Provider interface
var _ Provider = (*GeminiProvider)(nil)

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}
	return &GeminiProvider{client: cl, modelName: modelName}, nil
}

func (g *GeminiProvider) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiProvider) Extract(ctx context.Context, document []byte) (*Extraction, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
		Temperature:      genai.Ptr[float32](0.0),
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text(edictExtractionPrompt),
		genai.Blob{MIMEType: "application/pdf", Data: document},
	)
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, NewSchemaError(errors.New("provider returned no candidates"))
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	return Decode([]byte(b.String()))
}

// Decode parses the provider's JSON payload into an Extraction. A payload
// that cannot be parsed into the expected structure is a schema failure.
func Decode(payload []byte) (*Extraction, error) {
	var wire wireExtraction
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, NewSchemaError(fmt.Errorf("provider output is not valid JSON: %w", err))
	}

	out := &Extraction{
		ContestName:    wire.ContestName,
		ExaminingBoard: wire.ExaminingBoard,
	}

	if wire.ExamDate != nil && *wire.ExamDate != "" {
		date, err := time.Parse(examDateLayout, *wire.ExamDate)
		if err != nil {
			return nil, NewSchemaError(fmt.Errorf("exam_date %q is not a valid date: %w", *wire.ExamDate, err))
		}
		out.ExamDate = &date
	}

	for _, role := range wire.ContestRoles {
		r := Role{JobTitle: role.JobTitle}
		for _, comp := range role.ExamComposition {
			r.Compositions = append(r.Compositions, ExamComposition{
				SubjectName:       comp.SubjectName,
				NumberOfQuestions: comp.NumberOfQuestions,
				WeightPerQuestion: comp.WeightPerQuestion,
			})
		}
		for _, content := range role.ProgrammaticContent {
			r.Topics = append(r.Topics, Topic{
				ExamModule: content.ExamModule,
				Subject:    content.Subject,
				Topic:      content.Topic,
			})
		}
		out.Roles = append(out.Roles, r)
	}

	return out, nil
}

// classify maps transport-level errors onto the pipeline's failure taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewTransientError(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code >= 500 {
			return NewTransientError(err)
		}
		return NewPermanentError(err)
	}

	// Network-level failures without an HTTP status are transient.
	return NewTransientError(err)
}

type wireExtraction struct {
	ContestName    string     `json:"contest_name"`
	ExaminingBoard string     `json:"examining_board"`
	ExamDate       *string    `json:"exam_date"`
	ContestRoles   []wireRole `json:"contest_roles"`
}

type wireRole struct {
	JobTitle            string        `json:"job_title"`
	ExamComposition     []wireComp    `json:"exam_composition"`
	ProgrammaticContent []wireContent `json:"programmatic_content"`
}

type wireComp struct {
	SubjectName       string   `json:"subject_name"`
	NumberOfQuestions *int     `json:"number_of_questions"`
	WeightPerQuestion *float64 `json:"weight_per_question"`
}

type wireContent struct {
	ExamModule string `json:"exam_module"`
	Subject    string `json:"subject"`
	Topic      string `json:"topic"`
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"contest_name": {
				Type:        genai.TypeString,
				Description: "O nome oficial e completo do concurso público.",
			},
			"examining_board": {
				Type:        genai.TypeString,
				Description: "O nome da banca examinadora responsável pela aplicação da prova. Ex.: FGV, CESPE, FCC.",
			},
			"exam_date": {
				Type:        genai.TypeString,
				Nullable:    true,
				Description: "A data provável da prova objetiva, no formato AAAA-MM-DD, ou nulo.",
			},
			"contest_roles": {
				Type:        genai.TypeArray,
				Description: "Lista de cargos oferecidos no concurso.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"job_title": {
							Type:        genai.TypeString,
							Description: "O nome do cargo, por exemplo, 'Analista Judiciário'.",
						},
						"exam_composition": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"subject_name":        {Type: genai.TypeString, Description: "A disciplina ou agrupamento da prova."},
									"number_of_questions": {Type: genai.TypeInteger, Nullable: true, Description: "Número de questões para esta disciplina."},
									"weight_per_question": {Type: genai.TypeNumber, Nullable: true, Description: "Peso de cada questão nesta disciplina."},
								},
								Required: []string{"subject_name"},
							},
						},
						"programmatic_content": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"exam_module": {Type: genai.TypeString, Description: "O módulo da prova, ex: 'Conhecimentos Básicos'."},
									"subject":     {Type: genai.TypeString, Description: "A matéria ou disciplina, ex: 'Língua Portuguesa'."},
									"topic":       {Type: genai.TypeString, Description: "O tópico específico do edital, ex: 'Concordância Verbal'."},
								},
								Required: []string{"exam_module", "subject", "topic"},
							},
						},
					},
					Required: []string{"job_title", "exam_composition", "programmatic_content"},
				},
			},
		},
		Required: []string{"contest_name", "examining_board", "contest_roles"},
	}
}
