package mail

type ActivationEmailData struct {
	Name          string
	PlanLabel     string
	PeriodLabel   string
	PaymentMethod string
	ValidUntil    string
	DashboardURL  string
}

type EmailSender struct {
	Host         string
	Port         int
	User         string
	Password     string
	From         string
	DashboardURL string
	dialer       Dialer
}
