package email

const (
	subjectLeadAssigned       = "New insulation lead in your area"
	subjectAssignmentExpired  = "A lead offer has expired"
	subjectLeadWon            = "You won the job"
	subjectLeadLost           = "The customer chose another contractor"
	subjectAssignmentReminder = "Reminder: a lead is waiting for your response"
	subjectAssignmentFollowup = "How did the job go?"
)
