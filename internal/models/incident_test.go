package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncidentStatusTransitions(t *testing.T) {
	require.True(t, IncidentStatusGenerated.CanTransitionTo(IncidentStatusOpened))
	require.True(t, IncidentStatusOpened.CanTransitionTo(IncidentStatusSigned))
	require.True(t, IncidentStatusSigned.CanTransitionTo(IncidentStatusClosed))

	require.False(t, IncidentStatusGenerated.CanTransitionTo(IncidentStatusSigned))
	require.False(t, IncidentStatusClosed.CanTransitionTo(IncidentStatusGenerated))
	require.False(t, IncidentStatusOpened.CanTransitionTo(IncidentStatusOpened))
	require.False(t, IncidentStatus("desconocido").CanTransitionTo(IncidentStatusOpened))
}

func TestCoerceIncidentType(t *testing.T) {
	typ, ok := CoerceIncidentType("bullying")
	require.True(t, ok)
	require.Equal(t, IncidentTypeBullying, typ)

	typ, ok = CoerceIncidentType("ciberacoso")
	require.False(t, ok)
	require.Equal(t, IncidentTypeOther, typ)

	typ, ok = CoerceIncidentType("")
	require.False(t, ok)
	require.Equal(t, IncidentTypeOther, typ)
}

func TestRiskLevelEscalated(t *testing.T) {
	require.False(t, RiskLow.Escalated())
	require.False(t, RiskMedium.Escalated())
	require.True(t, RiskHigh.Escalated())
	require.True(t, RiskImminent.Escalated())

	_, err := ParseRiskLevel("critico")
	require.Error(t, err)
}

func TestProtocolCheckScan(t *testing.T) {
	var protocol ProtocolCheck
	require.NoError(t, protocol.Scan([]byte(`{"acciones":[{"id":"accion-01","descripcion":"Notificar a tutores"}],"completadas":{"accion-01":true}}`)))
	require.Len(t, protocol.Acciones, 1)
	require.True(t, protocol.Completadas["accion-01"])

	require.NoError(t, protocol.Scan(nil))
	require.NotNil(t, protocol.Completadas)

	require.Error(t, protocol.Scan([]byte(`{malformed`)))
	require.Error(t, protocol.Scan(42))
}
