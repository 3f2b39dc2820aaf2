package db

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"proxy-fleet/pkg/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

func ListNodes(db *gorm.DB) ([]model.Node, error) {
	var nodes []model.Node
	if err := db.Order("id").Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

func GetNode(db *gorm.DB, id int64) (model.Node, error) {
	var n model.Node
	err := db.First(&n, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Node{}, ErrNotFound
	}
	return n, err
}

// UpsertNode inserts or fully replaces a node configuration row.
func UpsertNode(db *gorm.DB, n *model.Node) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(n).Error
}

func DeleteNode(db *gorm.DB, id int64) error {
	return db.Delete(&model.Node{}, id).Error
}

// ListEnabledUsers returns the accounts that should exist on every node.
func ListEnabledUsers(db *gorm.DB) ([]model.User, error) {
	var users []model.User
	if err := db.Where("enabled = ?", true).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func GetUserByUsername(db *gorm.DB, username string) (model.User, error) {
	var u model.User
	err := db.Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func UpsertUser(db *gorm.DB, u *model.User) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		UpdateAll: true,
	}).Create(u).Error
}

func DeleteUser(db *gorm.DB, id int64) error {
	return db.Delete(&model.User{}, id).Error
}
