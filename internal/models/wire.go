package models

// Wire-level request/response bodies for the protocol's endpoints.
// Field names match the JSON the protocol specifies verbatim,
// including its defaults (handled by the handlers, since a missing
// JSON field must be distinguishable from an explicit zero value for
// messages_number).

type GetTokenRequest struct {
	UserName string `json:"user_name"`
}

type GetTokenResponse struct {
	Token string `json:"token,omitempty"`
	Info  string `json:"info,omitempty"`
}

type ConnectRequest struct {
	ChatWith       string `json:"chat_with"`
	MessagesNumber *int   `json:"messages_number"`
}

type CommentView struct {
	ID      int64  `json:"id"`
	Author  string `json:"author"`
	Text    string `json:"text"`
	Created string `json:"created"`
}

type MessageView struct {
	ID              int64         `json:"id"`
	PubDate         string        `json:"pub_date"`
	Author          string        `json:"author"`
	MessageText     string        `json:"message_text"`
	MessageComments []CommentView `json:"message_comments"`
}

type ConnectResponse struct {
	Messages       []MessageView `json:"messages"`
	UnreadMessages []MessageView `json:"unread_messages"`
}

type SendRequest struct {
	SendTo  string `json:"send_to"`
	Message string `json:"message"`
}

type InfoResponse struct {
	Info string `json:"info"`
}

type WarningResponse struct {
	Warning string `json:"warning"`
}

type CommentRequest struct {
	MessageID int64  `json:"message_id"`
	Comment   string `json:"comment"`
}

type ReportRequest struct {
	ReportOn string `json:"report_on"`
	ChatType string `json:"chat_type"`
}

type StatusChatView struct {
	Name          string `json:"name"`
	ChatType      string `json:"chat_type"`
	Created       string `json:"created"`
	MessagesCount int    `json:"messages_number"`
	UsersCount    int    `json:"users_number"`
}

type StatusResponse struct {
	ConnectedAs string           `json:"connected_as"`
	Chats       []StatusChatView `json:"chats"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
