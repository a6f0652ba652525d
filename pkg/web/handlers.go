// Package web provides the HTTP handlers of the process tracking API.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/venturahq/tramite/pkg/persistence"
	"github.com/venturahq/tramite/pkg/services"
)

type APIHandlers struct {
	authService        *services.Auth
	userService        *services.User
	processService     *services.Process
	progressionService *services.Progression
	dashboardService   *services.Dashboard
	persistence        persistence.Persistence
	validator          *validator.Validate
}

func NewAPIHandlers(
	authService *services.Auth,
	userService *services.User,
	processService *services.Process,
	progressionService *services.Progression,
	dashboardService *services.Dashboard,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		authService:        authService,
		userService:        userService,
		processService:     processService,
		progressionService: progressionService,
		dashboardService:   dashboardService,
		persistence:        persistence,
		validator:          validator,
	}
}

// parseID parses a positive numeric path parameter.
func parseID(c fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(c, "invalid "+name)
	}

	return id, nil
}

func (h *APIHandlers) Login(c fiber.Ctx) error {
	var req LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	token, user, err := h.authService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(LoginResponse{Token: token, User: user})
}

func (h *APIHandlers) GetUsers(c fiber.Ctx) error {
	users, err := h.userService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(users)
}

func (h *APIHandlers) GetStaff(c fiber.Ctx) error {
	users, err := h.userService.ListStaff(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(users)
}

func (h *APIHandlers) GetUser(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.userService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(user)
}

func (h *APIHandlers) CreateUser(c fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.userService.Create(c.Context(), services.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *APIHandlers) UpdateUser(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.userService.Update(c.Context(), id, services.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(user)
}

func (h *APIHandlers) DeleteUser(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	err = h.userService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ResetPassword(c fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.userService.ResetPassword(c.Context(), req.Email, req.Password)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "password updated"})
}

func (h *APIHandlers) GetProcessTypes(c fiber.Ctx) error {
	types, err := h.persistence.ProcessTypes().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(types)
}

func (h *APIHandlers) GetProcesses(c fiber.Ctx) error {
	processes, err := h.processService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(processes)
}

func (h *APIHandlers) GetProcess(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	process, err := h.processService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(process)
}

func (h *APIHandlers) CreateProcess(c fiber.Ctx) error {
	return h.upsertProcess(c, nil)
}

func (h *APIHandlers) UpdateProcess(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	return h.upsertProcess(c, &id)
}

func (h *APIHandlers) upsertProcess(c fiber.Ctx, processID *int64) error {
	var req UpsertProcessRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.processService.Upsert(c.Context(), req.toModel(processID))
	if err != nil {
		return handleServiceError(c, err)
	}

	status := fiber.StatusOK
	if processID == nil {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(fiber.Map{
		"client_id":  result.ClientID,
		"process_id": result.ProcessID,
	})
}

func (h *APIHandlers) DeleteProcess(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	clientDeleted, err := h.processService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"client_deleted": clientDeleted})
}

func (h *APIHandlers) GetProcessStages(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	checklist, err := h.processService.ListStages(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(checklist)
}

func (h *APIHandlers) GetUserTasks(c fiber.Ctx) error {
	userID, err := parseID(c, "userId")
	if err != nil {
		return err
	}

	tasks, err := h.progressionService.ListUserTasks(c.Context(), userID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(tasks)
}

func (h *APIHandlers) GetPendingTaskCount(c fiber.Ctx) error {
	userID, err := parseID(c, "userId")
	if err != nil {
		return err
	}

	count, err := h.progressionService.CountPendingTasks(c.Context(), userID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"count": count})
}

func (h *APIHandlers) FinalizeTask(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	result, err := h.progressionService.FinalizeStage(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"stage":             result.Finalized,
		"activated":         result.Activated,
		"process_id":        result.ProcessID,
		"process_concluded": result.ProcessConcluded,
	})
}

func (h *APIHandlers) GetUserNotifications(c fiber.Ctx) error {
	userID, err := parseID(c, "userId")
	if err != nil {
		return err
	}

	notifications, err := h.progressionService.ListNotifications(c.Context(), userID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(notifications)
}

func (h *APIHandlers) GetDashboard(c fiber.Ctx) error {
	data, err := h.dashboardService.Summary(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(data)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "API is healthy"
	httpStatus := http.StatusOK

	err := h.persistence.HealthCheck(c.Context())
	if err != nil {
		status = "unhealthy"
		message = "Persistence layer is unhealthy: " + err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
