package dispatch

import "fmt"

// Platform describes one distribution target for the shared dispatch state
// machine: where to log in, which form controls to drive, and which
// credentials gate the attempt. Adding a platform means adding a descriptor,
// not another copy of the machine.
type Platform struct {
	Name string

	// CredentialKeys are the secret keys that must all be present before a
	// dispatch proceeds. GateStatus is recorded when any of them is absent:
	// the browser platforms report missing_credentials, the delivery-API
	// platforms report pending_auth because provisioning there is an OAuth
	// handshake rather than a stored password.
	CredentialKeys []string
	GateStatus     string

	// Browserless platforms validate the media file and record success
	// without driving a browser; delivery happens through the platform's
	// ingestion feed rather than a web form.
	Browserless bool

	LoginURL           string
	LoginReadyField    string
	EmailField         string
	PasswordField      string
	LoginSubmit        string
	LoggedInMarker     string
	UploadURL          string
	FileInput          string
	TitleField         string
	DescriptionField   string
	TagsField          string
	GenreField         string
	UploadSubmit       string
	CompletionMarker   string
	DefaultDescription string
}

// CredentialScope returns the secret-store scope for one account on this
// platform, e.g. "audiomack_account_2".
func (p Platform) CredentialScope(accountID int64) string {
	return fmt.Sprintf("%s_account_%d", p.Name, accountID)
}

var platforms = map[string]Platform{
	"spotify": {
		Name:           "spotify",
		CredentialKeys: []string{"CLIENT_ID", "CLIENT_SECRET"},
		GateStatus:     StatusPendingAuth,
		Browserless:    true,
	},
	"apple": {
		Name:           "apple",
		CredentialKeys: []string{"CLIENT_ID", "CLIENT_SECRET"},
		GateStatus:     StatusPendingAuth,
		Browserless:    true,
	},
	"soundcloud": {
		Name:               "soundcloud",
		CredentialKeys:     []string{"EMAIL", "PASSWORD"},
		GateStatus:         StatusMissingCredentials,
		LoginURL:           "https://soundcloud.com/signin",
		LoginReadyField:    `input[name="email"]`,
		EmailField:         `input[name="email"]`,
		PasswordField:      `input[name="password"]`,
		LoginSubmit:        `button[type="submit"]`,
		LoggedInMarker:     `a[href="/upload"]`,
		UploadURL:          "https://soundcloud.com/upload",
		FileInput:          `input[type="file"]`,
		TitleField:         `input[name="title"]`,
		DescriptionField:   `textarea[name="description"]`,
		TagsField:          `input[name="tag_list"]`,
		UploadSubmit:       `button[type="submit"]`,
		CompletionMarker:   `.upload-success`,
		DefaultDescription: "Uploaded via pipeline",
	},
	"audiomack": {
		Name:             "audiomack",
		CredentialKeys:   []string{"EMAIL", "PASSWORD"},
		GateStatus:       StatusMissingCredentials,
		LoginURL:         "https://www.audiomack.com/login",
		LoginReadyField:  `input[name="email"]`,
		EmailField:       `input[name="email"]`,
		PasswordField:    `input[name="password"]`,
		LoginSubmit:      `button[type="submit"]`,
		LoggedInMarker:   `a[href="/upload"]`,
		UploadURL:        "https://www.audiomack.com/upload",
		FileInput:        `input[type="file"]`,
		TitleField:       `input[name="title"]`,
		DescriptionField: `textarea[name="description"]`,
		TagsField:        `input[name="tags"]`,
		GenreField:       `select[name="genre"]`,
		UploadSubmit:     `button[type="submit"]`,
		CompletionMarker: `.upload-success`,
	},
}

// Lookup returns the descriptor for name.
func Lookup(name string) (Platform, bool) {
	platform, ok := platforms[name]
	return platform, ok
}
