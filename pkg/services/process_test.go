package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/notifier"
	"github.com/venturahq/tramite/pkg/persistence/memory"
	"github.com/venturahq/tramite/pkg/services"
)

// fakeNotifier records fan-out calls for assertions. Deliveries run in the
// background, so readers must poll via count.
type fakeNotifier struct {
	mu       sync.Mutex
	contacts []notifier.Contact
	tasks    []notifier.Task
}

func (f *fakeNotifier) NotifyTaskAssigned(_ context.Context, contact notifier.Contact, task notifier.Task) []notifier.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.contacts = append(f.contacts, contact)
	f.tasks = append(f.tasks, task)

	return []notifier.Outcome{{Channel: "fake"}}
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.tasks)
}

func (f *fakeNotifier) lastTask() notifier.Task {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.tasks[len(f.tasks)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func threeStageInput(typeID int64) models.ProcessUpsert {
	return models.ProcessUpsert{
		Client: models.ClientInput{
			Name:  "Maria Silva",
			Phone: "11999990000",
		},
		Process: models.ProcessInput{
			Name:   "Locação Rua das Flores 100",
			TypeID: typeID,
		},
		Stages: []models.StageInput{
			{Name: "Documentação"},
			{Name: "Análise"},
			{Name: "Contrato"},
		},
	}
}

func TestProcessUpsert_RequiresStages(t *testing.T) {
	service := services.NewProcess(memory.NewPersistence(), nil, testLogger())

	input := threeStageInput(1)
	input.Stages = nil

	_, err := service.Upsert(context.Background(), input)
	assert.ErrorIs(t, err, services.ErrStagesRequired)
}

func TestProcessUpsert_RejectsUnknownType(t *testing.T) {
	service := services.NewProcess(memory.NewPersistence(), nil, testLogger())

	_, err := service.Upsert(context.Background(), threeStageInput(99))
	assert.ErrorIs(t, err, services.ErrUnknownProcessType)
}

func TestProcessUpsert_NotifiesAssignedFirstStage(t *testing.T) {
	p := memory.NewPersistence()
	fake := &fakeNotifier{}
	service := services.NewProcess(p, fake, testLogger())
	ctx := context.Background()

	user := &models.User{Name: "Rui Alves", Email: "rui@example.com", Phone: "11988887777", Role: models.RoleStaff}
	require.NoError(t, p.Users().Create(ctx, user))

	input := threeStageInput(1)
	input.Stages[0].UserID = &user.ID

	result, err := service.Upsert(ctx, input)
	require.NoError(t, err)
	require.Len(t, result.Activated, 1)

	require.Eventually(t, func() bool { return fake.count() == 1 }, time.Second, 10*time.Millisecond)

	task := fake.lastTask()
	assert.Equal(t, "Documentação", task.Name)
	assert.Equal(t, result.ProcessID, task.ProcessID)
}

func TestProcessUpsert_NoFanOutWithoutAssignee(t *testing.T) {
	fake := &fakeNotifier{}
	service := services.NewProcess(memory.NewPersistence(), fake, testLogger())

	result, err := service.Upsert(context.Background(), threeStageInput(1))
	require.NoError(t, err)
	assert.Empty(t, result.Activated)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fake.count())
}

func TestProcessGet_NotFound(t *testing.T) {
	service := services.NewProcess(memory.NewPersistence(), nil, testLogger())

	_, err := service.Get(context.Background(), 42)
	assert.ErrorIs(t, err, services.ErrProcessNotFound)
}

func TestProcessList_ReportsCurrentStage(t *testing.T) {
	p := memory.NewPersistence()
	service := services.NewProcess(p, nil, testLogger())
	ctx := context.Background()

	created, err := service.Upsert(ctx, threeStageInput(1))
	require.NoError(t, err)

	summaries, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Documentação", summaries[0].CurrentStage)
	assert.Equal(t, models.ProcessStatusInProgress, summaries[0].Status)

	detail, err := service.Get(ctx, created.ProcessID)
	require.NoError(t, err)

	for _, stage := range detail.Stages {
		_, err = p.Stages().Finalize(ctx, stage.ID)
		require.NoError(t, err)
	}

	summaries, err = service.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusConcluded, summaries[0].Status)
}

func TestProcessListStages_MergesDefaultChecklist(t *testing.T) {
	p := memory.NewPersistence()
	service := services.NewProcess(p, nil, testLogger())
	ctx := context.Background()

	user := &models.User{Name: "Bia Costa", Email: "bia@example.com", Role: models.RoleStaff}
	require.NoError(t, p.Users().Create(ctx, user))

	input := threeStageInput(1)
	input.Stages[0].UserID = &user.ID

	created, err := service.Upsert(ctx, input)
	require.NoError(t, err)

	checklist, err := service.ListStages(ctx, created.ProcessID)
	require.NoError(t, err)
	assert.Equal(t, created.ProcessID, checklist.ProcessID)
	require.Len(t, checklist.Stages, 15)

	assert.Equal(t, "Documentação", checklist.Stages[0].Name)
	assert.Equal(t, models.StageStatusInProgress, checklist.Stages[0].Status)
	assert.Equal(t, "Bia Costa", checklist.Stages[0].Assignee)

	// Unpersisted checklist entries come back pending and unassigned.
	assert.Equal(t, "Vistoria", checklist.Stages[7].Name)
	assert.Equal(t, models.StageStatusPending, checklist.Stages[7].Status)
	assert.Equal(t, "Não atribuído", checklist.Stages[7].Assignee)
}

func TestProcessListStages_NotFound(t *testing.T) {
	service := services.NewProcess(memory.NewPersistence(), nil, testLogger())

	_, err := service.ListStages(context.Background(), 42)
	assert.ErrorIs(t, err, services.ErrProcessNotFound)
}

func TestProcessDelete(t *testing.T) {
	service := services.NewProcess(memory.NewPersistence(), nil, testLogger())
	ctx := context.Background()

	created, err := service.Upsert(ctx, threeStageInput(1))
	require.NoError(t, err)

	clientDeleted, err := service.Delete(ctx, created.ProcessID)
	require.NoError(t, err)
	assert.True(t, clientDeleted)

	_, err = service.Delete(ctx, created.ProcessID)
	assert.ErrorIs(t, err, services.ErrProcessNotFound)
}
