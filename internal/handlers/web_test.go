package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/services"
)

// WebHandlerTestSuite drives the browser pages the way a form-posting browser would
type WebHandlerTestSuite struct {
	suite.Suite
	env    *testEnv
	alice  *models.User
	client *client
}

func (suite *WebHandlerTestSuite) SetupTest() {
	suite.env = setupTestEnv(suite.T())
	suite.alice = suite.env.createUser("Alice", "alice@example.com")
	suite.client = suite.env.newClient()
}

func (suite *WebHandlerTestSuite) login() {
	w := suite.client.form("/login", url.Values{"email": {"alice@example.com"}, "password": {"supersecret"}})
	suite.Require().Equal(http.StatusFound, w.Code)
	suite.Equal("/dashboard", w.Header().Get("Location"))
}

func (suite *WebHandlerTestSuite) tasks() []models.Task {
	var tasks []models.Task
	suite.Require().NoError(suite.env.db.Order("id").Find(&tasks).Error)
	return tasks
}

func (suite *WebHandlerTestSuite) TestPublicPages() {
	for _, path := range []string{"/", "/about", "/docs", "/login", "/register"} {
		w := suite.client.get(path)
		suite.Equal(http.StatusOK, w.Code, path)
		suite.Contains(w.Body.String(), "TaskMaster", path)
	}
}

func (suite *WebHandlerTestSuite) TestProtectedPagesRedirect() {
	for _, path := range []string{"/dashboard", "/task/new", "/task/1", "/task/1/edit"} {
		w := suite.client.get(path)
		suite.Equal(http.StatusFound, w.Code, path)
		suite.Equal("/login", w.Header().Get("Location"), path)
	}
}

func (suite *WebHandlerTestSuite) TestRegisterAndLogin() {
	w := suite.client.form("/register", url.Values{
		"name":      {"Bob"},
		"email":     {"bob@example.com"},
		"password":  {"secret123"},
		"password2": {"secret123"},
	})
	suite.Require().Equal(http.StatusFound, w.Code)
	suite.Equal("/login", w.Header().Get("Location"))

	w = suite.client.get("/login")
	suite.Contains(w.Body.String(), "Account created. Please log in.")

	w = suite.client.form("/login", url.Values{"email": {"bob@example.com"}, "password": {"secret123"}})
	suite.Equal(http.StatusFound, w.Code)

	w = suite.client.get("/dashboard")
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Welcome back, Bob.")
}

func (suite *WebHandlerTestSuite) TestRegister_Errors() {
	w := suite.client.form("/register", url.Values{
		"name":      {"Alice Again"},
		"email":     {"ALICE@example.com"},
		"password":  {"secret123"},
		"password2": {"secret123"},
	})
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Email already registered")

	w = suite.client.form("/register", url.Values{
		"name":      {"Carol"},
		"email":     {"carol@example.com"},
		"password":  {"secret123"},
		"password2": {"different"},
	})
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Passwords must match.")

	long := strings.Repeat("x", 73)
	w = suite.client.form("/register", url.Values{
		"name":      {"Dave"},
		"email":     {"dave@example.com"},
		"password":  {long},
		"password2": {long},
	})
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Password must be at most 72 bytes.")
}

func (suite *WebHandlerTestSuite) TestLogin_Invalid() {
	w := suite.client.form("/login", url.Values{"email": {"alice@example.com"}, "password": {"nope"}})
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Invalid credentials.")
}

// malformedForm posts a multipart body without a boundary, which form binding rejects
func (suite *WebHandlerTestSuite) malformedForm(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "multipart/form-data")
	return suite.client.do(req)
}

func (suite *WebHandlerTestSuite) TestMalformedFormsAreRejected() {
	w := suite.malformedForm("/login")
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Invalid form submission.")

	suite.login()
	task := suite.env.createTask(suite.alice.ID, "Keep me")

	w = suite.malformedForm("/task/new")
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Invalid form submission.")

	w = suite.malformedForm(fmt.Sprintf("/task/%d/edit", task.ID))
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Invalid form submission.")

	tasks := suite.tasks()
	suite.Require().Len(tasks, 1)
	suite.Equal("Keep me", tasks[0].Title)
}

func (suite *WebHandlerTestSuite) TestCreateTask() {
	suite.login()

	w := suite.client.form("/task/new", url.Values{
		"title":    {"Water plants"},
		"category": {""},
		"priority": {"Low"},
		"due_date": {"2026-10-20 14:30"},
		"reminder": {"y"},
	})
	suite.Require().Equal(http.StatusFound, w.Code)

	tasks := suite.tasks()
	suite.Require().Len(tasks, 1)
	suite.Equal("General", tasks[0].Category)
	suite.Equal(models.PriorityLow, tasks[0].Priority)
	suite.True(tasks[0].Reminder)
	suite.Require().NotNil(tasks[0].DueDate)

	w = suite.client.get("/dashboard")
	suite.Contains(w.Body.String(), "Task created.")
	suite.Contains(w.Body.String(), "Water plants")
}

func (suite *WebHandlerTestSuite) TestCreateTask_InvalidDate() {
	suite.login()

	w := suite.client.form("/task/new", url.Values{"title": {"Dentist"}, "due_date": {"next blue moon"}})
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Invalid due date format")
	suite.Contains(w.Body.String(), `value="Dentist"`)
	suite.Empty(suite.tasks())
}

func (suite *WebHandlerTestSuite) TestCreateTask_Validation() {
	suite.login()

	w := suite.client.form("/task/new", url.Values{"title": {"  "}})
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Title is required.")
	suite.Empty(suite.tasks())
}

func (suite *WebHandlerTestSuite) TestEditTask_ClearsDueDate() {
	suite.login()
	task := suite.env.createTask(suite.alice.ID, "Dated")
	due := "2026-10-05 10:00"
	_, err := suite.env.taskService.UpdateTask(context.Background(), updateDue(suite.alice.ID, task.ID, due))
	suite.Require().NoError(err)

	w := suite.client.get(fmt.Sprintf("/task/%d/edit", task.ID))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), due)

	w = suite.client.form(fmt.Sprintf("/task/%d/edit", task.ID), url.Values{
		"title":    {"Undated"},
		"priority": {"Medium"},
		"due_date": {""},
	})
	suite.Require().Equal(http.StatusFound, w.Code)

	tasks := suite.tasks()
	suite.Equal("Undated", tasks[0].Title)
	suite.Nil(tasks[0].DueDate)
	suite.False(tasks[0].Reminder)
}

func (suite *WebHandlerTestSuite) TestOtherUsersTaskIsNotFound() {
	bob := suite.env.createUser("Bob", "bob@example.com")
	bobs := suite.env.createTask(bob.ID, "Bob's secret")
	suite.login()

	for _, path := range []string{fmt.Sprintf("/task/%d", bobs.ID), fmt.Sprintf("/task/%d/edit", bobs.ID), "/task/abc"} {
		w := suite.client.get(path)
		suite.Equal(http.StatusNotFound, w.Code, path)
		suite.NotContains(w.Body.String(), "Bob's secret")
	}

	w := suite.client.form(fmt.Sprintf("/task/%d/delete", bobs.ID), url.Values{})
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.client.form(fmt.Sprintf("/task/%d/toggle_complete", bobs.ID), url.Values{})
	suite.Equal(http.StatusNotFound, w.Code)

	suite.Len(suite.tasks(), 1)
}

func (suite *WebHandlerTestSuite) TestToggleAndDelete() {
	suite.login()
	task := suite.env.createTask(suite.alice.ID, "Chore")

	w := suite.client.form(fmt.Sprintf("/task/%d/toggle_complete", task.ID), url.Values{})
	suite.Require().Equal(http.StatusFound, w.Code)
	suite.True(suite.tasks()[0].Completed)

	w = suite.client.get(fmt.Sprintf("/task/%d", task.ID))
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Completed")

	w = suite.client.form(fmt.Sprintf("/task/%d/delete", task.ID), url.Values{})
	suite.Require().Equal(http.StatusFound, w.Code)
	suite.Empty(suite.tasks())

	w = suite.client.get("/dashboard")
	suite.Contains(w.Body.String(), "Task deleted.")
}

func (suite *WebHandlerTestSuite) TestDashboard_Pagination() {
	suite.login()
	for i := 1; i <= 9; i++ {
		suite.env.createTask(suite.alice.ID, fmt.Sprintf("chore %02d", i))
	}

	w := suite.client.get("/dashboard?q=chore")
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "chore 08")
	suite.NotContains(w.Body.String(), "chore 09")
	suite.Contains(w.Body.String(), "/dashboard?page=2&amp;q=chore&amp;sort=priority")

	w = suite.client.get("/dashboard?page=2&q=chore")
	suite.Contains(w.Body.String(), "chore 09")

	w = suite.client.get("/dashboard?page=7")
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "No tasks match.")

	w = suite.client.get("/dashboard?page=1152921504606846977")
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "No tasks match.")
	suite.NotContains(w.Body.String(), "chore 01")
}

func (suite *WebHandlerTestSuite) TestLogout() {
	suite.login()

	w := suite.client.get("/logout")
	suite.Require().Equal(http.StatusFound, w.Code)

	w = suite.client.get("/dashboard")
	suite.Equal(http.StatusFound, w.Code)
}

func (suite *WebHandlerTestSuite) TestIndexRedirectsWhenLoggedIn() {
	suite.login()

	w := suite.client.get("/")
	suite.Equal(http.StatusFound, w.Code)
	suite.Equal("/dashboard", w.Header().Get("Location"))
}

func TestWebHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(WebHandlerTestSuite))
}

func updateDue(ownerID, taskID uint64, due string) services.UpdateTaskInput {
	return services.UpdateTaskInput{
		OwnerID:       ownerID,
		TaskID:        taskID,
		DueDate:       services.FormDueDate(due),
		DueDatePolicy: services.DueDateStrict,
	}
}
