package repository

import (
	"errors"
	"quiz_backend/internal/model"
	"quiz_backend/internal/util"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var c model.Course
	if err := r.DB.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("course", id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CourseRepository) List() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Order("id asc").Find(&courses).Error
	return courses, err
}

// Delete removes the course with its quizzes, questions and options. It fails
// with a RestrictedDeleteError when any of those questions already has answers.
func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var c model.Course
		if err := tx.First(&c, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NewNotFoundError("course", id)
			}
			return err
		}

		var questionIDs []uint
		if err := tx.Model(&model.Question{}).
			Joins("JOIN quizzes ON quizzes.id = questions.quiz_id").
			Where("quizzes.course_id = ?", id).
			Pluck("questions.id", &questionIDs).Error; err != nil {
			return err
		}
		if err := deleteQuestionsTx(tx, "course", id, questionIDs); err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Quiz{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, id).Error
	})
}

// deleteQuestionsTx deletes the given questions together with their options,
// refusing when answers reference any of them.
func deleteQuestionsTx(tx *gorm.DB, entity string, id uint, questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return nil
	}
	var answers int64
	if err := tx.Model(&model.Answer{}).Where("question_id IN ?", questionIDs).Count(&answers).Error; err != nil {
		return err
	}
	if answers > 0 {
		return &util.RestrictedDeleteError{Entity: entity, ID: id, Dependents: answers}
	}
	if err := tx.Where("question_id IN ?", questionIDs).Delete(&model.Option{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", questionIDs).Delete(&model.Question{}).Error
}
