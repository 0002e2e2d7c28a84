package fieldjob

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veldtops/fieldsuite-backend/internal/domain/fieldjob"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type SequenceRepo interface {
	// EnsureDefaults creates the org's counters for every sequence kind.
	// Existing counters are left untouched.
	EnsureDefaults(dbc dbctx.Context, orgID uuid.UUID) error
	Get(dbc dbctx.Context, orgID uuid.UUID, kind fieldjob.SequenceKind) (*fieldjob.Sequence, error)
	// NextNumber advances the counter under a row lock and returns the
	// formatted number. Concurrent callers serialize on the lock, so no two
	// documents in an org ever share a number.
	NextNumber(dbc dbctx.Context, orgID uuid.UUID, kind fieldjob.SequenceKind) (string, error)
}

type sequenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSequenceRepo(db *gorm.DB, baseLog *logger.Logger) SequenceRepo {
	return &sequenceRepo{db: db, log: baseLog.With("repo", "SequenceRepo")}
}

func (r *sequenceRepo) EnsureDefaults(dbc dbctx.Context, orgID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil {
		return nil
	}
	kinds := []fieldjob.SequenceKind{
		fieldjob.SequenceTicket,
		fieldjob.SequenceDispatch,
		fieldjob.SequenceInstallation,
	}
	rows := make([]*fieldjob.Sequence, 0, len(kinds))
	for _, kind := range kinds {
		rows = append(rows, &fieldjob.Sequence{
			OrgID:      orgID,
			Kind:       kind,
			Prefix:     kind.DefaultPrefix(),
			NextNumber: 1,
			Padding:    5,
		})
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}, {Name: "kind"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

func (r *sequenceRepo) Get(dbc dbctx.Context, orgID uuid.UUID, kind fieldjob.SequenceKind) (*fieldjob.Sequence, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil {
		return nil, nil
	}
	var row fieldjob.Sequence
	err := t.WithContext(dbc.Ctx).
		Where("org_id = ? AND kind = ?", orgID, kind).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *sequenceRepo) NextNumber(dbc dbctx.Context, orgID uuid.UUID, kind fieldjob.SequenceKind) (string, error) {
	if orgID == uuid.Nil {
		return "", nil
	}
	if dbc.Tx != nil {
		return r.allocate(dbc, dbc.Tx, orgID, kind)
	}
	var number string
	err := r.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		n, err := r.allocate(dbc, tx, orgID, kind)
		if err != nil {
			return err
		}
		number = n
		return nil
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

func (r *sequenceRepo) allocate(dbc dbctx.Context, tx *gorm.DB, orgID uuid.UUID, kind fieldjob.SequenceKind) (string, error) {
	var seq fieldjob.Sequence
	lock := func() error {
		return tx.WithContext(dbc.Ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("org_id = ? AND kind = ?", orgID, kind).
			Limit(1).
			Find(&seq).Error
	}
	if err := lock(); err != nil {
		return "", err
	}
	if seq.ID == uuid.Nil {
		// Orgs created before this kind existed have no counter yet; seed one
		// and take the lock again.
		seed := &fieldjob.Sequence{
			OrgID:      orgID,
			Kind:       kind,
			Prefix:     kind.DefaultPrefix(),
			NextNumber: 1,
			Padding:    5,
		}
		if err := tx.WithContext(dbc.Ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "org_id"}, {Name: "kind"}},
				DoNothing: true,
			}).
			Create(seed).Error; err != nil {
			return "", err
		}
		if err := lock(); err != nil {
			return "", err
		}
	}
	n := seq.NextNumber
	if err := tx.WithContext(dbc.Ctx).
		Model(&fieldjob.Sequence{}).
		Where("id = ?", seq.ID).
		UpdateColumn("next_number", gorm.Expr("next_number + 1")).Error; err != nil {
		return "", err
	}
	return seq.Format(n), nil
}
