package repository

import (
	"errors"
	"quiz_backend/internal/model"
	"quiz_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// "order" is a reserved word, so the column always goes through the dialect's quoting.
var orderColumn = clause.Column{Name: "order"}

func orderAsc(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: orderColumn})
}

func optionsByDisplayOrder(db *gorm.DB) *gorm.DB {
	return db.Order("display_order asc, id asc")
}

// maxOrderRetries bounds how often a lost race for the next order is retried.
const maxOrderRetries = 3

// Create inserts the question at the end of its quiz: order becomes the current
// maximum plus one, or 1 for the first question. Order is unique per quiz.
func (r *QuestionRepository) Create(question *model.Question) error {
	for try := 1; ; try++ {
		question.ID = 0
		for i := range question.Options {
			question.Options[i].ID = 0
			question.Options[i].QuestionID = 0
		}
		err := r.createAtEnd(question)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		if try == maxOrderRetries {
			return util.ErrOrderConflict
		}
	}
}

func (r *QuestionRepository) createAtEnd(question *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		// serializes inserts into the same quiz where the driver supports row locks
		var quiz model.Quiz
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", question.QuizID).
			Take(&quiz).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NewNotFoundError("quiz", question.QuizID)
			}
			return err
		}

		var maxOrder int
		if err := tx.Model(&model.Question{}).
			Where("quiz_id = ?", question.QuizID).
			Select("COALESCE(MAX(?), 0)", orderColumn).
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		question.Order = maxOrder + 1
		return tx.Create(question).Error
	})
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.Preload("Options", optionsByDisplayOrder).First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("question", id)
		}
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) ListByQuiz(quizID uint) ([]model.Question, error) {
	var qs []model.Question
	err := orderAsc(r.DB.Where("quiz_id = ?", quizID)).Find(&qs).Error
	return qs, err
}

// FirstUnansweredAfter returns the lowest-ordered question after the given order
// that the user has never answered, or nil.
func (r *QuestionRepository) FirstUnansweredAfter(quizID uint, order int, userID uint) (*model.Question, error) {
	return r.adjacentUnanswered(quizID, userID, clause.Gt{Column: orderColumn, Value: order}, false)
}

// LastUnansweredBefore is the mirror of FirstUnansweredAfter.
func (r *QuestionRepository) LastUnansweredBefore(quizID uint, order int, userID uint) (*model.Question, error) {
	return r.adjacentUnanswered(quizID, userID, clause.Lt{Column: orderColumn, Value: order}, true)
}

func (r *QuestionRepository) adjacentUnanswered(quizID, userID uint, bound clause.Expression, desc bool) (*model.Question, error) {
	answered := r.DB.Model(&model.Answer{}).Select("question_id").Where("user_id = ?", userID)

	var qs []model.Question
	err := r.DB.Where("quiz_id = ?", quizID).
		Where(bound).
		Where("id NOT IN (?)", answered).
		Order(clause.OrderByColumn{Column: orderColumn, Desc: desc}).
		Limit(1).
		Find(&qs).Error
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, nil
	}
	return &qs[0], nil
}

// Update saves the question fields and reconciles its options by text: options
// whose text survives keep their id and display order, new texts are inserted
// as given, and vanished options are removed unless an answer selected them.
func (r *QuestionRepository) Update(question *model.Question, options []model.Option) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(question).Error; err != nil {
			return err
		}

		var existing []model.Option
		if err := tx.Where("question_id = ?", question.ID).Find(&existing).Error; err != nil {
			return err
		}
		byText := make(map[string]model.Option, len(existing))
		for _, o := range existing {
			byText[o.Text] = o
		}

		kept := make(map[uint]bool, len(options))
		result := make([]model.Option, 0, len(options))
		for _, o := range options {
			if old, ok := byText[o.Text]; ok {
				old.IsCorrect = o.IsCorrect
				old.Feedback = o.Feedback
				if err := tx.Save(&old).Error; err != nil {
					return err
				}
				kept[old.ID] = true
				result = append(result, old)
				continue
			}
			o.QuestionID = question.ID
			if err := tx.Create(&o).Error; err != nil {
				return err
			}
			result = append(result, o)
		}

		var removed []uint
		for _, o := range existing {
			if !kept[o.ID] {
				removed = append(removed, o.ID)
			}
		}
		if len(removed) > 0 {
			var selected int64
			if err := tx.Table("answer_selected_options").Where("option_id IN ?", removed).Count(&selected).Error; err != nil {
				return err
			}
			if selected > 0 {
				return &util.RestrictedDeleteError{Entity: "option of question", ID: question.ID, Dependents: selected}
			}
			if err := tx.Where("id IN ?", removed).Delete(&model.Option{}).Error; err != nil {
				return err
			}
		}

		question.Options = result
		return nil
	})
}

// Delete refuses to orphan answers: a question with answers cannot be deleted.
func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var q model.Question
		if err := tx.First(&q, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NewNotFoundError("question", id)
			}
			return err
		}

		var answers int64
		if err := tx.Model(&model.Answer{}).Where("question_id = ?", id).Count(&answers).Error; err != nil {
			return err
		}
		if answers > 0 {
			return &util.RestrictedDeleteError{Entity: "question", ID: id, Dependents: answers}
		}

		if err := tx.Where("question_id = ?", id).Delete(&model.Option{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Question{}, id).Error
	})
}

// ListByCourse returns the questions of every quiz of the course, grouped by
// quiz and ordered within each quiz.
func (r *QuestionRepository) ListByCourse(courseID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Select("questions.*").
		Joins("JOIN quizzes ON quizzes.id = questions.quiz_id").
		Where("quizzes.course_id = ?", courseID).
		Order("questions.quiz_id asc").
		Order(clause.OrderByColumn{Column: clause.Column{Table: "questions", Name: "order"}}).
		Find(&qs).Error
	return qs, err
}
