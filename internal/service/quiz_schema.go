package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/lms-go-api/internal/apperror"
	"github.com/noah-isme/lms-go-api/internal/models"
)

const quizQuestionsSchemaURL = "lms://schemas/quiz_questions.json"

const quizQuestionsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "maxItems": 200,
  "items": {
    "type": "object",
    "required": ["id", "type", "prompt"],
    "properties": {
      "id": {"type": "string", "minLength": 1, "maxLength": 64},
      "type": {"enum": ["multiple_choice", "true_false", "short_answer", "essay"]},
      "prompt": {"type": "string", "minLength": 1, "maxLength": 5000},
      "options": {"type": "array", "items": {"type": "string", "minLength": 1}, "maxItems": 20},
      "answer": {"type": "string"},
      "points": {"type": "number", "minimum": 0}
    },
    "allOf": [
      {
        "if": {"properties": {"type": {"const": "multiple_choice"}}},
        "then": {"required": ["options", "answer"], "properties": {"options": {"minItems": 2}}}
      },
      {
        "if": {"properties": {"type": {"const": "true_false"}}},
        "then": {"required": ["answer"], "properties": {"answer": {"enum": ["true", "false"]}}}
      }
    ]
  }
}`

var quizQuestions = jsonschema.MustCompileString(quizQuestionsSchemaURL, quizQuestionsSchema)

// parseQuizQuestions validates raw question JSON and decodes it. Empty input yields no questions.
func parseQuizQuestions(raw json.RawMessage) ([]models.QuizQuestion, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []models.QuizQuestion{}, nil
	}

	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, apperror.New(http.StatusBadRequest, "questions must be valid JSON", err)
	}
	if err := quizQuestions.Validate(document); err != nil {
		return nil, apperror.New(http.StatusBadRequest, fmt.Sprintf("invalid quiz questions: %s", schemaMessage(err)), err)
	}

	var questions []models.QuizQuestion
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, apperror.New(http.StatusBadRequest, "questions must be valid JSON", err)
	}

	seen := make(map[string]struct{}, len(questions))
	for i, question := range questions {
		if _, dup := seen[question.ID]; dup {
			return nil, apperror.BadRequest(fmt.Sprintf("duplicate question id %q", question.ID))
		}
		seen[question.ID] = struct{}{}

		if question.Type == models.QuestionTypeMultipleChoice && !containsString(question.Options, question.Answer) {
			return nil, apperror.BadRequest(fmt.Sprintf("question %d answer must be one of its options", i+1))
		}
		if question.Points == 0 {
			questions[i].Points = 1
		}
	}

	return questions, nil
}

func schemaMessage(err error) string {
	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		leaf := validationErr
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		location := leaf.InstanceLocation
		if location == "" {
			location = "/"
		}
		return fmt.Sprintf("%s: %s", location, leaf.Message)
	}
	return err.Error()
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
