package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/examark/examark-api/internal/config"
	"github.com/examark/examark-api/internal/dto"
	"github.com/examark/examark-api/internal/grading"
	"github.com/examark/examark-api/internal/handler"
	"github.com/examark/examark-api/internal/middleware"
	"github.com/examark/examark-api/internal/models"
	"github.com/examark/examark-api/internal/repository"
	"github.com/examark/examark-api/internal/router"
	"github.com/examark/examark-api/internal/service"
)

const routerTestSecret = "router-test-secret"

type staticGrader struct {
	result grading.Result
}

func (g *staticGrader) Grade(_ context.Context, _ grading.Request) (grading.Result, error) {
	return g.result, nil
}

func (g *staticGrader) Review(_ context.Context, _ grading.Request) (string, error) {
	return "Keep the structure, expand the conclusion.", nil
}

func signToken(t *testing.T, role string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(routerTestSecret))
	require.NoError(t, err)
	return signed
}

func setupAPI(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Question{}, &models.Student{}, &models.Submission{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	questionRepo := repository.NewQuestionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	grader := &staticGrader{result: grading.Result{
		Introduction:     grading.ScaledSection{Marks: 3.0, Feedback: "Solid"},
		MainBody:         grading.ScaledSection{Marks: 3.5, Feedback: "Detailed"},
		Conclusion:       grading.ScaledSection{Marks: 1.5, Feedback: "Fine"},
		Examples:         grading.ScaledSection{Marks: 0, Feedback: "No examples provided"},
		Diagrams:         grading.ScaledSection{Marks: 0, Feedback: "No diagrams provided"},
		TotalMarks:       8.0,
		AIDetectionScore: 0.1,
	}}

	questionService := service.NewQuestionService(questionRepo, validate, logger)
	studentService := service.NewStudentService(studentRepo, validate, logger)
	gradingService := service.NewGradingService(questionRepo, studentRepo, submissionRepo, grader, nil, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		QuestionHandler: handler.NewQuestionHandler(questionService, logger),
		StudentHandler:  handler.NewStudentHandler(studentService, logger),
		GradingHandler:  handler.NewGradingHandler(gradingService, logger),
		JWTMiddleware:   middleware.JWTProtected(routerTestSecret),
	})

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload interface{}) (int, map[string]json.RawMessage) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))

	return resp.StatusCode, decoded
}

func questionPayload() dto.QuestionCreateRequest {
	return dto.QuestionCreateRequest{
		Title:    "Photosynthesis",
		Text:     "Explain photosynthesis in flowering plants.",
		MaxMarks: 10,
	}
}

func TestQuestionAuthoringRequiresTeacherRole(t *testing.T) {
	app := setupAPI(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/questions", signToken(t, "student"), questionPayload())
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, "false", string(body["success"]))

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/questions", signToken(t, "teacher"), questionPayload())
	require.Equal(t, fiber.StatusCreated, status)
}

func TestQuestionMutationsRejectStudentRole(t *testing.T) {
	app := setupAPI(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/questions", signToken(t, "teacher"), questionPayload())
	require.Equal(t, fiber.StatusCreated, status)

	var created dto.QuestionResponse
	require.NoError(t, json.Unmarshal(body["data"], &created))

	studentToken := signToken(t, "student")
	path := fmt.Sprintf("/api/v1/questions/%d", created.ID)

	status, _ = doJSON(t, app, fiber.MethodPatch, path, studentToken, map[string]int{"max_marks": 50})
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = doJSON(t, app, fiber.MethodDelete, path, studentToken, nil)
	require.Equal(t, fiber.StatusForbidden, status)

	// Reads stay open to any authenticated caller.
	status, _ = doJSON(t, app, fiber.MethodGet, path, studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
}

func TestFreshDeploymentGradesEndToEnd(t *testing.T) {
	app := setupAPI(t)
	teacherToken := signToken(t, "teacher")
	studentToken := signToken(t, "student")

	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/questions", teacherToken, questionPayload())
	require.Equal(t, fiber.StatusCreated, status)
	var question dto.QuestionResponse
	require.NoError(t, json.Unmarshal(body["data"], &question))

	status, body = doJSON(t, app, fiber.MethodPost, "/api/v1/students", studentToken, dto.StudentCreateRequest{
		Name:  "Asha",
		Email: "Asha@Example.com",
	})
	require.Equal(t, fiber.StatusCreated, status)
	var student dto.StudentResponse
	require.NoError(t, json.Unmarshal(body["data"], &student))
	require.Equal(t, "asha@example.com", student.Email)

	status, body = doJSON(t, app, fiber.MethodPost, "/api/v1/grading/grade", studentToken, dto.GradeRequest{
		QuestionID: question.ID,
		StudentID:  student.ID,
		Answer:     "Plants convert light energy into chemical energy.",
	})
	require.Equal(t, fiber.StatusOK, status)

	var graded dto.GradingResponse
	require.NoError(t, json.Unmarshal(body["data"], &graded))
	require.InDelta(t, 8.0, graded.TotalMarks, 1e-9)
	require.NotZero(t, graded.SubmissionID)
}

func TestStudentRegistrationRejectsDuplicateEmail(t *testing.T) {
	app := setupAPI(t)
	token := signToken(t, "student")

	payload := dto.StudentCreateRequest{Name: "Ravi", Email: "ravi@example.com"}

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/students", token, payload)
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/students", token, payload)
	require.Equal(t, fiber.StatusConflict, status)
}
