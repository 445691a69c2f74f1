package interviewstore

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	dbmodels "visa-interview-backend/models/db"
)

// Provider — архив завершенных интервью, переживает вытеснение
// сессии из реестра
type Provider interface {
	Save(rec dbmodels.InterviewArchive) (id string, err error)
	GetBySessionID(sessionID string) (*dbmodels.InterviewArchive, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Save(rec dbmodels.InterviewArchive) (id string, err error) {
	err = i.db.
		Save(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetBySessionID(sessionID string) (*dbmodels.InterviewArchive, error) {
	rec := dbmodels.InterviewArchive{}
	err := i.db.
		Model(&dbmodels.InterviewArchive{}).
		Where("session_id = ?", sessionID).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
