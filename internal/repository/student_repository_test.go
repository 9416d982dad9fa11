package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/presensia/presensia-api/pkg/errors"
)

func TestStudentFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)

	device := "dev-1"
	mock.ExpectQuery(`SELECT id, roll_no, name, class_id, device_id FROM students WHERE id = \$1`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "roll_no", "name", "class_id", "device_id"}).
			AddRow("stu-1", "23", "Asha", "class-1", device))

	student, err := repo.FindByID(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", student.Name)
	require.NotNil(t, student.DeviceID)
	assert.Equal(t, "dev-1", *student.DeviceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT id, roll_no, name, class_id, device_id FROM students WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "roll_no", "name", "class_id", "device_id"}))

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
