package mail

type AssignmentEmailData struct {
	AssigneeName string
	LeadName     string
	Company      string
	Phone        string
	Email        string
	Location     string
	Status       string
	Message      string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}
