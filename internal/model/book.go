// Package model はドメインモデルを定義する。
package model

import "time"

// Book はユーザーが記録した書籍を表す。
type Book struct {
	ID         string
	UserID     string
	Title      string
	Author     string
	ISBN       string
	Rating     int // 1〜5
	Summary    string
	Notes      string
	Review     string
	CoverData  []byte
	CoverMime  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BookWithOwner は書籍と所有者の表示情報を結合した構造体。
// 一覧取得時のJOIN結果に対応する。
type BookWithOwner struct {
	Book
	OwnerName     string
	OwnerUsername string
}
