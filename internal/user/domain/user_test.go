package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func TestUser_Age(t *testing.T) {
	tests := []struct {
		name     string
		birth    time.Time
		expected int
	}{
		{
			name:     "cumpleaños ya pasado este año",
			birth:    time.Date(1994, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: 30,
		},
		{
			name:     "cumpleaños aún no ha pasado este año",
			birth:    time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC),
			expected: 24,
		},
		{
			name:     "cumpleaños hoy",
			birth:    time.Date(1984, 6, 15, 0, 0, 0, 0, time.UTC),
			expected: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{BirthDate: tt.birth}
			assert.Equal(t, tt.expected, user.Age(now))
		})
	}
}

func TestUser_Age_LeapYears(t *testing.T) {
	tests := []struct {
		name     string
		birth    time.Time
		at       time.Time
		expected int
	}{
		{
			name:     "1 de marzo en año bisiesto, nacido en año normal",
			birth:    time.Date(2001, 3, 1, 0, 0, 0, 0, time.UTC),
			at:       time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			expected: 22,
		},
		{
			name:     "1 de marzo en año normal, nacido en año bisiesto",
			birth:    time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC),
			at:       time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
			expected: 23,
		},
		{
			name:     "nacido el 29 de febrero, año normal",
			birth:    time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC),
			at:       time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
			expected: 22,
		},
		{
			name:     "nacido el 29 de febrero, año bisiesto",
			birth:    time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC),
			at:       time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			expected: 24,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{BirthDate: tt.birth}
			assert.Equal(t, tt.expected, user.Age(tt.at))
		})
	}
}

func TestRegisterUser_RecordsEvent(t *testing.T) {
	u, err := RegisterUser("  Ana@Example.com ", "Ana", "+34600000000", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), now)
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", u.Email)
	assert.True(t, u.CreatedAt.Equal(now))

	events := u.PendingEvents()
	require.Len(t, events, 1)
	evt, ok := events[0].(UserRegisteredEvent)
	require.True(t, ok)
	assert.Equal(t, UserRegistered, evt.EventType())
	assert.Equal(t, u.ID, evt.UserID)
	assert.Equal(t, "+34600000000", evt.Phone)
	assert.True(t, evt.OccurredOn().Equal(now))
}

func TestRegisterUser_Invalid(t *testing.T) {
	_, err := RegisterUser("not-an-email", "Ana", "", time.Time{}, now)
	assert.ErrorIs(t, err, ErrInvalidUser)

	_, err = RegisterUser("ana@example.com", "  ", "", time.Time{}, now)
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestUser_ChangeEmail(t *testing.T) {
	u, err := RegisterUser("ana@example.com", "Ana", "", time.Time{}, now)
	require.NoError(t, err)
	u.ClearEvents()

	// mismo email: sin evento
	require.NoError(t, u.ChangeEmail("ANA@example.com", now))
	assert.Empty(t, u.PendingEvents())

	require.NoError(t, u.ChangeEmail("ana.b@example.com", now))
	events := u.PendingEvents()
	require.Len(t, events, 1)
	evt := events[0].(UserEmailChangedEvent)
	assert.Equal(t, "ana@example.com", evt.OldEmail)
	assert.Equal(t, "ana.b@example.com", evt.NewEmail)

	assert.ErrorIs(t, u.ChangeEmail("nope", now), ErrInvalidUser)
}

func TestUser_DeleteTwice(t *testing.T) {
	u, err := RegisterUser("ana@example.com", "Ana", "", time.Time{}, now)
	require.NoError(t, err)
	u.ClearEvents()

	require.NoError(t, u.Delete(now))
	require.Len(t, u.PendingEvents(), 1)

	u.MarkDeleted(now)
	assert.ErrorIs(t, u.Delete(now), ErrUserNotFound)
	assert.ErrorIs(t, u.ChangeEmail("x@example.com", now), ErrUserNotFound)
}
