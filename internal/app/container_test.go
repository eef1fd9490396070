package app

import (
	"context"
	"testing"
	"time"

	"github.com/caniken03/vioconcierge/internal/rescheduling/application/commands"
	"github.com/caniken03/vioconcierge/internal/rescheduling/application/workflow"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	reschedulingPersistence "github.com/caniken03/vioconcierge/internal/rescheduling/infrastructure/persistence"
	"github.com/caniken03/vioconcierge/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig() *config.Config {
	return &config.Config{
		AppEnv:           "local",
		TokenTTL:         24 * time.Hour,
		ReminderTokenTTL: 12 * time.Hour,
		RequestRetention: 7 * 24 * time.Hour,
		SlotSearchDays:   14,
		SMTPHost:         "localhost",
		SMTPPort:         587,
		SMTPFrom:         "no-reply@vioconcierge.local",
		ResponseLinkBase: "https://respond.vioconcierge.local",
	}
}

func TestNewLocalContainer(t *testing.T) {
	c, err := NewLocalContainer(localConfig(), nil)
	require.NoError(t, err)

	assert.NotNil(t, c.Engine)
	assert.NotNil(t, c.CreateRequest)
	assert.NotNil(t, c.ProcessWorkflow)
	assert.NotNil(t, c.ConfirmReschedule)
	assert.NotNil(t, c.CancelRequest)
	assert.NotNil(t, c.ProcessCustomerResponse)
	assert.NotNil(t, c.RecordCallOutcome)
	assert.NotNil(t, c.ExpirySweeper)
	assert.NotNil(t, c.ReminderSweeper)
	assert.NotNil(t, c.OutboxProcessor)
	assert.NotNil(t, c.TokenService)
	assert.True(t, c.CalendarRegistry.HasProvider("booking_api"))
	assert.True(t, c.CalendarRegistry.HasProvider("scheduling_link"))
}

func TestLocalContainerWorkflow(t *testing.T) {
	ctx := context.Background()
	c, err := NewLocalContainer(localConfig(), nil)
	require.NoError(t, err)

	tenants, ok := c.TenantRepo.(*reschedulingPersistence.MemoryTenantRepository)
	require.True(t, ok)
	tenantID := uuid.New()
	tenants.Put(&domain.TenantConfig{ID: tenantID, BusinessName: "Vio Dental"})

	contact := domain.NewContact(tenantID, "Dana")
	contact.Email = "dana@example.com"
	require.NoError(t, c.ContactRepo.Save(ctx, contact))

	// Email delivery is not reachable in local mode, so the run stalls at
	// confirmation with a retryable pending status rather than failing.
	result, err := c.CreateRequest.Handle(ctx, commands.CreateRequestCommand{
		TenantID:                tenantID,
		ContactID:               contact.ID(),
		CallSessionID:           "call-local",
		OriginalAppointmentTime: time.Now().Add(48 * time.Hour),
		OriginalAppointmentType: "cleaning",
		Mode:                    workflow.ModeAutomated,
	})
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, domain.StatusPending, result.Run.Status)
	assert.NotEmpty(t, result.Request.AvailableSlots())
}
