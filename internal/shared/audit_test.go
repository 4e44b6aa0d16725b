package shared_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pmws/pmws/internal/shared"
)

func TestAuditLogValidate(t *testing.T) {
	ok := shared.AuditLog{ActorID: 1, Action: "account.approve", Entity: "account", EntityID: "7"}
	assert.NoError(t, ok.Validate())

	missingActor := ok
	missingActor.ActorID = 0
	assert.Error(t, missingActor.Validate())

	missingEntity := ok
	missingEntity.EntityID = ""
	assert.Error(t, missingEntity.Validate())
}

func TestAuditLoggerNotInitialised(t *testing.T) {
	var logger *shared.AuditLogger
	assert.EqualError(t, logger.Record(context.Background(), shared.AuditLog{}), "audit logger not initialised")
}
