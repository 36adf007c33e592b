package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/dto"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/services"
	"github.com/yukikurage/taskmaster/internal/web"
)

// Flash categories, matching the Bootstrap alert styles the templates use
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

var flashCategories = []string{FlashSuccess, FlashInfo, FlashWarning, FlashDanger}

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Category string
	Message  string
}

// TaskForm is the browser task form
type TaskForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Category    string `form:"category"`
	Priority    string `form:"priority"`
	DueDate     string `form:"due_date"`
	Reminder    string `form:"reminder"`
}

// Checked reports whether the reminder checkbox was ticked
func (f TaskForm) Checked() bool {
	return f.Reminder != ""
}

type registerForm struct {
	Name      string `form:"name"`
	Email     string `form:"email"`
	Password  string `form:"password"`
	Password2 string `form:"password2"`
}

const invalidFormMessage = "Invalid form submission."

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// taskFormView is what task_form.html renders
type taskFormView struct {
	Title       string
	Description string
	Category    string
	Priority    string
	DueDate     string
	Reminder    bool
}

// WebHandler serves the server-rendered browser UI
type WebHandler struct {
	authService *services.AuthService
	taskService *services.TaskService
}

// NewWebHandler creates a new WebHandler
func NewWebHandler(authService *services.AuthService, taskService *services.TaskService) *WebHandler {
	return &WebHandler{
		authService: authService,
		taskService: taskService,
	}
}

// Index shows the landing page, sending logged-in users to their dashboard
func (h *WebHandler) Index(c *gin.Context) {
	if _, ok := middleware.SessionUserID(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	h.render(c, http.StatusOK, "index.html", gin.H{"Title": "Welcome"})
}

// About shows the about page
func (h *WebHandler) About(c *gin.Context) {
	h.render(c, http.StatusOK, "about.html", gin.H{"Title": "About"})
}

// Docs shows the API reference
func (h *WebHandler) Docs(c *gin.Context) {
	h.render(c, http.StatusOK, "docs.html", gin.H{"Title": "API"})
}

// NotFound renders the 404 page
func (h *WebHandler) NotFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "404.html", gin.H{"Title": "Not found"})
}

// RegisterPage shows the registration form
func (h *WebHandler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{"Title": "Register", "Form": registerForm{}})
}

// Register creates an account from the registration form
func (h *WebHandler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusOK, "register.html", gin.H{"Title": "Register", "Form": form, "Errors": []string{invalidFormMessage}})
		return
	}

	_, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Name:            form.Name,
		Email:           form.Email,
		Password:        form.Password,
		PasswordConfirm: &form.Password2,
	})
	if err != nil {
		form.Password, form.Password2 = "", ""
		if errors.Is(err, services.ErrEmailTaken) {
			h.addFlash(c, FlashDanger, "Email already registered")
			h.render(c, http.StatusOK, "register.html", gin.H{"Title": "Register", "Form": form})
			return
		}
		message, ok := formErrorMessage(err)
		if !ok {
			c.Error(err)
			message = "Registration failed. Please try again."
		}
		h.render(c, http.StatusOK, "register.html", gin.H{"Title": "Register", "Form": form, "Errors": []string{message}})
		return
	}

	h.addFlash(c, FlashSuccess, "Account created. Please log in.")
	c.Redirect(http.StatusFound, "/login")
}

// LoginPage shows the login form
func (h *WebHandler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Form": loginForm{}})
}

// Login starts a session from the login form
func (h *WebHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.Error(err)
		h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Form": loginForm{}, "Errors": []string{invalidFormMessage}})
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			c.Error(err)
		}
		h.addFlash(c, FlashDanger, "Invalid credentials.")
		h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Form": loginForm{Email: form.Email}})
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	session.AddFlash("Welcome back, "+user.Name+".", FlashSuccess)
	if err := session.Save(); err != nil {
		c.Error(err)
		h.render(c, http.StatusInternalServerError, "login.html", gin.H{"Title": "Log in", "Form": loginForm{Email: form.Email}, "Errors": []string{"Could not start a session."}})
		return
	}

	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout ends the session
func (h *WebHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.AddFlash("Logged out.", FlashInfo)
	if err := session.Save(); err != nil {
		c.Error(err)
	}
	c.Redirect(http.StatusFound, "/")
}

// Dashboard shows the filtered, sorted and paginated task list
func (h *WebHandler) Dashboard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	page, err := h.taskService.Dashboard(c.Request.Context(), dashboardQuery(c, userID))
	if err != nil {
		h.serverError(c, err)
		return
	}

	data := gin.H{"Title": "Dashboard", "Page": page}
	if page.Page > 1 {
		data["PrevURL"] = dashboardURL(page, page.Page-1)
	}
	if page.Page < page.TotalPages {
		data["NextURL"] = dashboardURL(page, page.Page+1)
	}
	h.render(c, http.StatusOK, "dashboard.html", data)
}

// NewTaskPage shows an empty task form
func (h *WebHandler) NewTaskPage(c *gin.Context) {
	h.renderTaskForm(c, "New Task", "/task/new", taskFormView{Priority: constants.DefaultPriority}, nil)
}

// CreateTask saves a task from the task form. Unparseable due dates are rejected.
func (h *WebHandler) CreateTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var form TaskForm
	if err := c.ShouldBind(&form); err != nil {
		c.Error(err)
		h.renderTaskForm(c, "New Task", "/task/new", taskFormView{Priority: constants.DefaultPriority}, []string{invalidFormMessage})
		return
	}

	_, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		OwnerID:       userID,
		Title:         form.Title,
		Description:   form.Description,
		Category:      form.Category,
		Priority:      form.Priority,
		DueDateText:   form.DueDate,
		Reminder:      form.Checked(),
		DueDatePolicy: services.DueDateStrict,
	})
	if err != nil {
		h.formFailure(c, "New Task", "/task/new", form, err)
		return
	}

	h.addFlash(c, FlashSuccess, "Task created.")
	c.Redirect(http.StatusFound, "/dashboard")
}

// ViewTask shows one task
func (h *WebHandler) ViewTask(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "view_task.html", gin.H{"Title": task.Title, "Task": task})
}

// EditTaskPage shows the task form prefilled with the stored task
func (h *WebHandler) EditTaskPage(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	view := taskFormView{
		Title:       task.Title,
		Description: task.Description,
		Category:    task.Category,
		Priority:    string(task.Priority),
		Reminder:    task.Reminder,
	}
	if task.DueDate != nil {
		view.DueDate = task.DueDate.In(h.taskService.Location()).Format(web.DateInputLayout)
	}
	h.renderTaskForm(c, "Edit Task", editURL(task.ID), view, nil)
}

// UpdateTask applies the submitted task form. An empty due date clears it.
func (h *WebHandler) UpdateTask(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	var form TaskForm
	if err := c.ShouldBind(&form); err != nil {
		c.Error(err)
		h.renderTaskForm(c, "Edit Task", editURL(task.ID), taskFormView{Title: task.Title, Priority: string(task.Priority)}, []string{invalidFormMessage})
		return
	}

	reminder := form.Checked()
	_, err := h.taskService.UpdateTask(c.Request.Context(), services.UpdateTaskInput{
		OwnerID:       task.UserID,
		TaskID:        task.ID,
		Title:         &form.Title,
		Description:   &form.Description,
		Category:      &form.Category,
		Priority:      &form.Priority,
		Reminder:      &reminder,
		DueDate:       services.FormDueDate(form.DueDate),
		DueDatePolicy: services.DueDateStrict,
	})
	if err != nil {
		h.formFailure(c, "Edit Task", editURL(task.ID), form, err)
		return
	}

	h.addFlash(c, FlashSuccess, "Task updated.")
	c.Redirect(http.StatusFound, "/dashboard")
}

// DeleteTask removes a task
func (h *WebHandler) DeleteTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), userID, taskID); err != nil {
		h.taskFailure(c, err)
		return
	}

	h.addFlash(c, FlashInfo, "Task deleted.")
	c.Redirect(http.StatusFound, "/dashboard")
}

// ToggleComplete flips the completion state of a task
func (h *WebHandler) ToggleComplete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	if _, err := h.taskService.ToggleComplete(c.Request.Context(), userID, taskID); err != nil {
		h.taskFailure(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *WebHandler) taskID(c *gin.Context) (uint64, bool) {
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		h.NotFound(c)
		return 0, false
	}
	return taskID, true
}

// loadTask fetches the :id task of the current user, rendering 404 when it is not theirs
func (h *WebHandler) loadTask(c *gin.Context) (*models.Task, bool) {
	userID, _ := middleware.GetUserID(c)
	taskID, ok := h.taskID(c)
	if !ok {
		return nil, false
	}

	task, err := h.taskService.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		h.taskFailure(c, err)
		return nil, false
	}
	return task, true
}

func (h *WebHandler) taskFailure(c *gin.Context, err error) {
	if errors.Is(err, services.ErrTaskNotFound) {
		h.NotFound(c)
		return
	}
	h.serverError(c, err)
}

// formFailure re-renders the task form with the submitted values and a warning
func (h *WebHandler) formFailure(c *gin.Context, title, action string, form TaskForm, err error) {
	if errors.Is(err, services.ErrTaskNotFound) {
		h.NotFound(c)
		return
	}

	view := taskFormView{
		Title:       form.Title,
		Description: form.Description,
		Category:    form.Category,
		Priority:    form.Priority,
		DueDate:     form.DueDate,
		Reminder:    form.Checked(),
	}

	if errors.Is(err, services.ErrInvalidDate) {
		h.renderTaskForm(c, title, action, view, []string{"Invalid due date format. Use YYYY-MM-DD or YYYY-MM-DD HH:MM"})
		return
	}
	if message, ok := formErrorMessage(err); ok {
		h.renderTaskForm(c, title, action, view, []string{message})
		return
	}
	h.serverError(c, err)
}

func (h *WebHandler) renderTaskForm(c *gin.Context, title, action string, form taskFormView, formErrors []string) {
	h.render(c, http.StatusOK, "task_form.html", gin.H{
		"Title":  title,
		"Action": action,
		"Form":   form,
		"Errors": formErrors,
	})
}

func (h *WebHandler) serverError(c *gin.Context, err error) {
	c.Error(err)
	c.String(http.StatusInternalServerError, "Internal server error")
}

// render adds the current user and pending flashes to data before executing the template
func (h *WebHandler) render(c *gin.Context, status int, name string, data gin.H) {
	session := sessions.Default(c)

	if userID, ok := middleware.SessionUserID(c); ok {
		if user, err := h.authService.GetUser(c.Request.Context(), userID); err == nil {
			userDTO := dto.ToUserDTO(*user)
			data["User"] = &userDTO
		}
	}

	var flashes []Flash
	for _, category := range flashCategories {
		for _, message := range session.Flashes(category) {
			flashes = append(flashes, Flash{Category: category, Message: fmt.Sprint(message)})
		}
	}
	if len(flashes) > 0 {
		data["Flashes"] = flashes
		if err := session.Save(); err != nil {
			c.Error(err)
		}
	}

	c.HTML(status, name, data)
}

func (h *WebHandler) addFlash(c *gin.Context, category, message string) {
	session := sessions.Default(c)
	session.AddFlash(message, category)
	if err := session.Save(); err != nil {
		c.Error(err)
	}
}

// formErrorMessage turns validation failures into a sentence for the form
func formErrorMessage(err error) (string, bool) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return capitalize(validationErr.Message) + ".", true
	case errors.Is(err, services.ErrPasswordTooShort):
		return fmt.Sprintf("Password must be at least %d characters.", constants.MinPasswordLength), true
	case errors.Is(err, services.ErrPasswordTooLong):
		return fmt.Sprintf("Password must be at most %d bytes.", constants.MaxPasswordLength), true
	case errors.Is(err, services.ErrPasswordMismatch):
		return "Passwords must match.", true
	default:
		return "", false
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func editURL(id uint64) string {
	return "/task/" + strconv.FormatUint(id, 10) + "/edit"
}

func dashboardURL(page *services.DashboardPage, number int) string {
	query := url.Values{}
	query.Set("page", strconv.Itoa(number))
	if page.Query != "" {
		query.Set("q", page.Query)
	}
	if page.Category != "" {
		query.Set("category", page.Category)
	}
	if page.Status != "" {
		query.Set("status", page.Status)
	}
	query.Set("sort", page.Sort)
	return "/dashboard?" + query.Encode()
}
