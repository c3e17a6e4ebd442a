package models

// Record holds the five business fields shared by every sink. The same
// struct is serialized into JSON files, XML files and database rows.
type Record struct {
	Title       string `json:"title" xml:"title" validate:"required,max=200"`
	Description string `json:"description" xml:"description"`
	Date        string `json:"date" xml:"date" validate:"required,datefmt,dateyear,dateexact"`
	Location    string `json:"location" xml:"location" validate:"required,max=300"`
	Organizer   string `json:"organizer" xml:"organizer" validate:"required,max=200"`
}

// Event is a database-resident record. The ID is assigned by the store.
type Event struct {
	ID int64 `json:"id"`
	Record
}
