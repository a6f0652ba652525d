package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
	"github.com/venturahq/tramite/pkg/persistence/memory"
)

func upsertInput(typeID int64) models.ProcessUpsert {
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

func TestProcessTypes_Seeded(t *testing.T) {
	p := memory.NewPersistence()

	types, err := p.ProcessTypes().List(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 3)
	assert.Equal(t, "Locação", types[0].Name)
}

func TestUpsert_PositionalStatusRule(t *testing.T) {
	p := memory.NewPersistence()
	ctx := context.Background()

	created, err := p.Processes().Upsert(ctx, upsertInput(1))
	require.NoError(t, err)

	detail, err := p.Processes().GetByID(ctx, created.ProcessID)
	require.NoError(t, err)
	require.Len(t, detail.Stages, 3)
	assert.Equal(t, models.StageStatusInProgress, detail.Stages[0].Status)
	assert.Equal(t, models.StageStatusPending, detail.Stages[1].Status)
	assert.Equal(t, models.StageStatusPending, detail.Stages[2].Status)
}

func TestUpsert_DeduplicatesClientAndProcess(t *testing.T) {
	p := memory.NewPersistence()
	ctx := context.Background()

	first, err := p.Processes().Upsert(ctx, upsertInput(1))
	require.NoError(t, err)

	second, err := p.Processes().Upsert(ctx, upsertInput(1))
	require.NoError(t, err)
	assert.Equal(t, first.ClientID, second.ClientID)
	assert.Equal(t, first.ProcessID, second.ProcessID)

	// Same client, different type makes a new process.
	third, err := p.Processes().Upsert(ctx, upsertInput(2))
	require.NoError(t, err)
	assert.Equal(t, first.ClientID, third.ClientID)
	assert.NotEqual(t, first.ProcessID, third.ProcessID)
}

func TestUpsert_FinalizedStatusIsSticky(t *testing.T) {
	p := memory.NewPersistence()
	ctx := context.Background()

	created, err := p.Processes().Upsert(ctx, upsertInput(1))
	require.NoError(t, err)

	detail, err := p.Processes().GetByID(ctx, created.ProcessID)
	require.NoError(t, err)

	_, err = p.Stages().Finalize(ctx, detail.Stages[0].ID)
	require.NoError(t, err)

	// Re-upserting must not downgrade the finalized first stage.
	_, err = p.Processes().Upsert(ctx, upsertInput(1))
	require.NoError(t, err)

	detail, err = p.Processes().GetByID(ctx, created.ProcessID)
	require.NoError(t, err)
	assert.Equal(t, models.StageStatusFinalized, detail.Stages[0].Status)
}

func TestUpsert_ReordersAndReplacesStages(t *testing.T) {
	p := memory.NewPersistence()
	ctx := context.Background()

	created, err := p.Processes().Upsert(ctx, upsertInput(1))
	require.NoError(t, err)

	input := upsertInput(1)
	input.ProcessID = &created.ProcessID
	input.Stages = []models.StageInput{
		{Name: "Contrato"},
		{Name: "Documentação"},
		{Name: "Planilha"},
	}

	_, err = p.Processes().Upsert(ctx, input)
	require.NoError(t, err)

	detail, err := p.Processes().GetByID(ctx, created.ProcessID)
	require.NoError(t, err)
	require.Len(t, detail.Stages, 4)

	assert.Equal(t, "Contrato", detail.Stages[0].Name)
	assert.Equal(t, models.StageStatusInProgress, detail.Stages[0].Status)
	assert.Equal(t, "Documentação", detail.Stages[1].Name)
	assert.Equal(t, models.StageStatusPending, detail.Stages[1].Status)
	assert.Equal(t, "Planilha", detail.Stages[2].Name)

	// The stage the new list no longer names is pushed behind it.
	assert.Equal(t, "Análise", detail.Stages[3].Name)
	assert.Equal(t, 4, detail.Stages[3].Order)
}

func TestFinalize_AdvancesChainAndConcludes(t *testing.T) {
	p := memory.NewPersistence()
	ctx := context.Background()

	created, err := p.Processes().Upsert(ctx, upsertInput(1))
	require.NoError(t, err)

	detail, err := p.Processes().GetByID(ctx, created.ProcessID)
	require.NoError(t, err)

	result, err := p.Stages().Finalize(ctx, detail.Stages[0].ID)
	require.NoError(t, err)
	require.NotNil(t, result.Activated)
	assert.Equal(t, "Análise", result.Activated.Name)
	assert.False(t, result.ProcessConcluded)

	_, err = p.Stages().Finalize(ctx, detail.Stages[1].ID)
	require.NoError(t, err)

	last, err := p.Stages().Finalize(ctx, detail.Stages[2].ID)
	require.NoError(t, err)
	assert.True(t, last.ProcessConcluded)

	_, err = p.Stages().Finalize(ctx, 999)
	assert.ErrorIs(t, err, persistence.ErrStageNotFound)
}

func TestDelete_RemovesOrphanClient(t *testing.T) {
	p := memory.NewPersistence()
	ctx := context.Background()

	first, err := p.Processes().Upsert(ctx, upsertInput(1))
	require.NoError(t, err)

	second, err := p.Processes().Upsert(ctx, upsertInput(2))
	require.NoError(t, err)

	clientDeleted, err := p.Processes().Delete(ctx, first.ProcessID)
	require.NoError(t, err)
	assert.False(t, clientDeleted)

	clientDeleted, err = p.Processes().Delete(ctx, second.ProcessID)
	require.NoError(t, err)
	assert.True(t, clientDeleted)
}

func TestTasksByUser_OnlyInProgressStages(t *testing.T) {
	p := memory.NewPersistence()
	ctx := context.Background()

	user := &models.User{Name: "Bia", Email: "bia@example.com", Role: models.RoleStaff}
	require.NoError(t, p.Users().Create(ctx, user))

	input := upsertInput(1)
	input.Stages[0].UserID = &user.ID
	input.Stages[1].UserID = &user.ID

	created, err := p.Processes().Upsert(ctx, input)
	require.NoError(t, err)

	// The assigned pending stage is not actionable yet and stays out.
	tasks, err := p.Stages().TasksByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.StageStatusInProgress, tasks[0].Status)
	assert.Equal(t, "Documentação", tasks[0].Name)

	count, err := p.Stages().CountInProgressByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	detail, err := p.Processes().GetByID(ctx, created.ProcessID)
	require.NoError(t, err)

	_, err = p.Stages().Finalize(ctx, detail.Stages[0].ID)
	require.NoError(t, err)

	tasks, err = p.Stages().TasksByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Análise", tasks[0].Name)
}

func TestOverdue_FiltersByDueDate(t *testing.T) {
	p := memory.NewPersistence()
	ctx := context.Background()

	user := &models.User{Name: "Caio", Email: "caio@example.com", Role: models.RoleStaff}
	require.NoError(t, p.Users().Create(ctx, user))

	due := time.Now().Add(-24 * time.Hour)

	input := upsertInput(1)
	input.Stages[0].UserID = &user.ID
	input.Stages[0].DueDate = &due

	_, err := p.Processes().Upsert(ctx, input)
	require.NoError(t, err)

	overdue, err := p.Stages().Overdue(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, user.ID, overdue[0].Assignee.ID)

	none, err := p.Stages().Overdue(ctx, due.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUsers_EmailUniqueness(t *testing.T) {
	p := memory.NewPersistence()
	ctx := context.Background()

	user := &models.User{Name: "Ana", Email: "ana@example.com", Role: models.RoleStaff}
	require.NoError(t, p.Users().Create(ctx, user))

	err := p.Users().Create(ctx, &models.User{Name: "Dup", Email: "ana@example.com", Role: models.RoleStaff})
	assert.ErrorIs(t, err, persistence.ErrEmailTaken)
}

func TestNotifications_RecordedOnActivation(t *testing.T) {
	p := memory.NewPersistence()
	ctx := context.Background()

	user := &models.User{Name: "Rui", Email: "rui@example.com", Role: models.RoleStaff}
	require.NoError(t, p.Users().Create(ctx, user))

	input := upsertInput(1)
	input.Stages[1].UserID = &user.ID

	created, err := p.Processes().Upsert(ctx, input)
	require.NoError(t, err)

	detail, err := p.Processes().GetByID(ctx, created.ProcessID)
	require.NoError(t, err)

	_, err = p.Stages().Finalize(ctx, detail.Stages[0].ID)
	require.NoError(t, err)

	notifications, err := p.Notifications().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, "Análise")

	// Idempotent: re-finalizing records nothing new.
	_, err = p.Stages().Finalize(ctx, detail.Stages[0].ID)
	require.NoError(t, err)

	notifications, err = p.Notifications().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}
