package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/security-core/internal/core/domain"
)

const seedDocument = `{
  "employees": [
    {
      "employeeId": "E001",
      "email": "Alice@OpsDesk.io",
      "fullName": "Alice Admin",
      "role": "System Administrator",
      "department": "IT",
      "isActive": true,
      "passwordHash": "$2a$10$abcdefghijklmnopqrstuv",
      "employmentStatus": "Active"
    },
    {
      "employeeId": "E002",
      "email": "bob@opsdesk.io",
      "fullName": "Bob Driver",
      "role": "Delivery Driver",
      "department": "Fleet",
      "isActive": false,
      "accessRoles": ["Driver", "Dispatcher"],
      "passwordHash": "$2a$10$zyxwvutsrqponmlkjihgfe",
      "employmentStatus": "Terminated"
    }
  ]
}`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "employees.json")
	require.NoError(t, os.WriteFile(path, []byte(seedDocument), 0o600))
	return path
}

func TestPrincipalStore_LoadAndFind(t *testing.T) {
	store, err := OpenPrincipalStore(writeSeed(t), zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	p, err := store.FindByEmail(ctx, "ALICE@opsdesk.io ")
	require.NoError(t, err)
	assert.Equal(t, "E001", p.EmployeeID)
	assert.Equal(t, "alice@opsdesk.io", p.Email)
	assert.Equal(t, domain.RoleSystemAdmin, p.Role)
	assert.Equal(t, []string{"SystemAdmin"}, p.AccessRoles)
	assert.True(t, p.CanAuthenticate())

	p, err = store.FindByEmployeeID(ctx, "E002")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDriver, p.Role)
	assert.Equal(t, []string{"Driver", "Dispatcher"}, p.AccessRoles)
	assert.False(t, p.CanAuthenticate())

	_, err = store.FindByEmail(ctx, "nobody@opsdesk.io")
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
	_, err = store.FindByEmployeeID(ctx, "E999")
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
}

func TestPrincipalStore_MutationsPersist(t *testing.T) {
	path := writeSeed(t)
	store, err := OpenPrincipalStore(path, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdatePasswordHash(ctx, "E001", "$2a$10$rotated"))
	require.NoError(t, store.TouchLastLogin(ctx, "E001", at))
	assert.ErrorIs(t, store.UpdatePasswordHash(ctx, "E404", "x"), domain.ErrPrincipalNotFound)

	reopened, err := OpenPrincipalStore(path, zerolog.Nop())
	require.NoError(t, err)
	p, err := reopened.FindByEmployeeID(ctx, "E001")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$rotated", p.PasswordHash)
	require.NotNil(t, p.LastLogin)
	assert.True(t, p.LastLogin.Equal(at))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc credentialDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc.Employees, 2)
}

func TestPrincipalStore_Upsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "employees.json")
	store, err := OpenPrincipalStore(path, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.Principal{EmployeeID: "E010", Email: "Carol@OpsDesk.io", Role: domain.RoleHR}))
	require.NoError(t, store.Upsert(ctx, &domain.Principal{EmployeeID: "E010", Email: "carol@opsdesk.io", Role: domain.RoleFinance}))

	p, err := store.FindByEmail(ctx, "carol@opsdesk.io")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFinance, p.Role)

	err = store.Upsert(ctx, &domain.Principal{EmployeeID: "E011", Email: "carol@opsdesk.io"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	err = store.Upsert(ctx, &domain.Principal{Email: "x@opsdesk.io"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	reopened, err := OpenPrincipalStore(path, zerolog.Nop())
	require.NoError(t, err)
	_, err = reopened.FindByEmployeeID(ctx, "E010")
	assert.NoError(t, err)
}

func TestPrincipalStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "employees.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := OpenPrincipalStore(path, zerolog.Nop())
	assert.Error(t, err)
}

func TestPrincipalStore_ConcurrentTouches(t *testing.T) {
	path := writeSeed(t)
	store, err := OpenPrincipalStore(path, zerolog.Nop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "E001"
			if i%2 == 0 {
				id = "E002"
			}
			assert.NoError(t, store.TouchLastLogin(context.Background(), id, time.Now()))
		}(i)
	}
	wg.Wait()

	reopened, err := OpenPrincipalStore(path, zerolog.Nop())
	require.NoError(t, err)
	for _, id := range []string{"E001", "E002"} {
		p, err := reopened.FindByEmployeeID(context.Background(), id)
		require.NoError(t, err)
		assert.NotNil(t, p.LastLogin, id)
	}
}

type entry struct {
	N int    `json:"n"`
	S string `json:"s"`
}

func TestJournal_AppendLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	j, err := OpenJournal[entry](path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, j.Append(ctx, entry{N: i, S: fmt.Sprintf("e%d", i)}))
	}

	all, err := j.Load(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 10)
	assert.Equal(t, 0, all[0].N)

	newest, err := j.Load(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []entry{{7, "e7"}, {8, "e8"}, {9, "e9"}}, newest)
}

func TestJournal_SkipsTornLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	content := `{"n":1,"s":"a"}` + "\n" + `{"n":2,"s":"b"}` + "\n" + `{"n":3,"s`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	j, err := OpenJournal[entry](path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	got, err := j.Load(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []entry{{1, "a"}, {2, "b"}}, got)
}

func TestJournal_RewriteThenAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	j, err := OpenJournal[entry](path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, j.Append(ctx, entry{N: i}))
	}
	require.NoError(t, j.Rewrite(ctx, []entry{{N: 4}, {N: 5}}))
	require.NoError(t, j.Append(ctx, entry{N: 6}))

	got, err := j.Load(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []entry{{N: 4}, {N: 5}, {N: 6}}, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(raw), "\n"))
}

func TestJournal_AppendAfterClose(t *testing.T) {
	j, err := OpenJournal[entry](filepath.Join(t.TempDir(), "x.jsonl"), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, j.Close())
	assert.Error(t, j.Append(context.Background(), entry{}))
}

func TestReadSeed(t *testing.T) {
	principals, err := ReadSeed(writeSeed(t))
	require.NoError(t, err)
	require.Len(t, principals, 2)
	assert.Equal(t, "alice@opsdesk.io", principals[0].Email)
	assert.Equal(t, domain.RoleSystemAdmin, principals[0].Role)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", principals[0].PasswordHash)

	_, err = ReadSeed(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
