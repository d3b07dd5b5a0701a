package gauth

// User-facing messages, shown as they are by the dashboard.
const (
	MsgConfigMissing    = "Configurazione Google OAuth incompleta"
	MsgPopupBlocked     = "Impossibile aprire la finestra di autenticazione. Controlla il blocco popup."
	MsgCancelled        = "Autenticazione annullata dall'utente"
	MsgExchangeFailed   = "Errore durante lo scambio del codice di autorizzazione"
	MsgUserInfoFailed   = "Errore durante il recupero informazioni utente"
	MsgSaveFailed       = "Errore durante il salvataggio dei token"
	MsgNotAuthenticated = "Utente non autenticato"
	MsgNoRefreshToken   = "Nessun refresh token disponibile"
	MsgRefreshFailed    = "Impossibile rinnovare il token di accesso"
	MsgSignInPending    = "Autenticazione già in corso"
	MsgGeneric          = "Errore durante l'autenticazione"
)

// AuthError pairs the message shown to the user with the underlying cause.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func authError(msg string, err error) *AuthError {
	return &AuthError{Message: msg, Err: err}
}
