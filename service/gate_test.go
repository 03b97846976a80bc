package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/healingbudsglobal/walletgate/adapters/store"
	"github.com/healingbudsglobal/walletgate/core"
)

func gateFixture(t *testing.T, identity *core.Identity) (*Gate, *core.Session) {
	t.Helper()

	identities := store.NewMemoryIdentityStore()
	var session *core.Session
	if identity != nil {
		require.NoError(t, identities.Save(context.Background(), identity))
		session = &core.Session{
			ID:         uuid.New().String(),
			Address:    identity.Address,
			IdentityID: identity.ID,
			Role:       identity.Role,
		}
	}
	return NewGate(identities), session
}

func TestGateDeniesWithoutSession(t *testing.T) {
	gate, _ := gateFixture(t, nil)

	decision, err := gate.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, core.GateDenyNoSession, decision)
}

func TestGateDeniesOrphanedSession(t *testing.T) {
	gate, _ := gateFixture(t, nil)

	session := &core.Session{ID: uuid.New().String(), IdentityID: uuid.New().String()}
	decision, err := gate.Evaluate(context.Background(), session)
	require.NoError(t, err)
	require.Equal(t, core.GateDenyNoSession, decision)
}

func TestGateAdminBypassesVerification(t *testing.T) {
	gate, session := gateFixture(t, &core.Identity{
		ID:      uuid.New().String(),
		Address: "0x00000000000000000000000000000000000000aa",
		Role:    core.RoleAdmin,
	})

	decision, err := gate.Evaluate(context.Background(), session)
	require.NoError(t, err)
	require.Equal(t, core.GateAllow, decision)
}

func TestGatePatientNeedsBothFlags(t *testing.T) {
	cases := []struct {
		name     string
		kyc      bool
		approved bool
		want     core.GateDecision
	}{
		{"neither", false, false, core.GateDenyUnverified},
		{"kyc only", true, false, core.GateDenyUnverified},
		{"approval only", false, true, core.GateDenyUnverified},
		{"both", true, true, core.GateAllow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate, session := gateFixture(t, &core.Identity{
				ID:            uuid.New().String(),
				Address:       "0x00000000000000000000000000000000000000bb",
				Role:          core.RolePatient,
				KYCVerified:   tc.kyc,
				AdminApproved: tc.approved,
			})

			decision, err := gate.Evaluate(context.Background(), session)
			require.NoError(t, err)
			require.Equal(t, tc.want, decision)
		})
	}
}

// The gate re-reads the identity record, so a session minted while the
// identity was an admin stops passing once the role is downgraded.
func TestGateUsesFreshIdentityState(t *testing.T) {
	identities := store.NewMemoryIdentityStore()
	identity := &core.Identity{
		ID:      uuid.New().String(),
		Address: "0x00000000000000000000000000000000000000cc",
		Role:    core.RoleAdmin,
	}
	require.NoError(t, identities.Save(context.Background(), identity))

	gate := NewGate(identities)
	session := &core.Session{ID: uuid.New().String(), IdentityID: identity.ID, Role: core.RoleAdmin}

	decision, err := gate.Evaluate(context.Background(), session)
	require.NoError(t, err)
	require.Equal(t, core.GateAllow, decision)

	identity.Role = core.RolePatient
	require.NoError(t, identities.Save(context.Background(), identity))

	decision, err = gate.Evaluate(context.Background(), session)
	require.NoError(t, err)
	require.Equal(t, core.GateDenyUnverified, decision)
}
