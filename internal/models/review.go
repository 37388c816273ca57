package models

import "time"

// Review is a single rating and comment left on an item.
type Review struct {
	ID        string    `db:"id" json:"id"`
	ItemID    string    `db:"item_id" json:"item_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	Author    string    `db:"author" json:"author"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReviewCreate is the request body for posting a review
type ReviewCreate struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
	Author  string `json:"author"`
}

// ReviewMutation is returned by review create and delete: the affected
// review plus the item with its refreshed rating.
type ReviewMutation struct {
	Review Review `json:"review"`
	Item   Item   `json:"item"`
}
