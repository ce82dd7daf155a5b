package registry

import (
	"errors"
	"testing"

	"github.com/dbgateway/gateway/internal/gwerrors"
)

func validDescriptor() Descriptor {
	return Descriptor{
		Name:   "local pg",
		Client: "postgresql",
		Host:   "localhost",
		Port:   5432,
		SSL:    false,
	}
}

func TestValidateAcceptsWellFormedDescriptor(t *testing.T) {
	if err := Validate(validDescriptor()); err != nil {
		t.Errorf("expected valid descriptor to pass, got %v", err)
	}
}

func TestValidateRejectsMissingName(t *testing.T) {
	d := validDescriptor()
	d.Name = "  "
	assertValidationField(t, Validate(d), "name")
}

func TestValidateRejectsUnknownClient(t *testing.T) {
	d := validDescriptor()
	d.Client = "oracle"
	assertValidationField(t, Validate(d), "client")
}

func TestValidateRejectsHostWithoutPort(t *testing.T) {
	d := validDescriptor()
	d.Port = 0
	assertValidationField(t, Validate(d), "port")
}

func TestValidateRejectsPortWithoutHost(t *testing.T) {
	d := validDescriptor()
	d.Host = ""
	assertValidationField(t, Validate(d), "host")
}

func TestValidateRejectsBothHostPortAndSocketPath(t *testing.T) {
	d := validDescriptor()
	d.SocketPath = "/tmp/pg.sock"
	assertValidationField(t, Validate(d), "socketPath")
}

func TestValidateSqliteRequiresOnlySocketPath(t *testing.T) {
	d := Descriptor{
		Name:       "local file db",
		Client:     "sqlite",
		SocketPath: "/data/app.db",
	}
	if err := Validate(d); err != nil {
		t.Errorf("sqlite descriptor with only socketPath should validate, got %v", err)
	}
}

func TestValidateSqliteRejectsMissingSocketPath(t *testing.T) {
	d := Descriptor{Name: "local file db", Client: "sqlite"}
	assertValidationField(t, Validate(d), "socketPath")
}

func TestValidateSSHRequiresHostUserAndCredential(t *testing.T) {
	d := validDescriptor()
	d.SSH = &SSHAuth{Host: "bastion", Port: 22, User: "deploy"}
	assertValidationField(t, Validate(d), "ssh")
}

func TestValidateSSHAcceptsPasswordCredential(t *testing.T) {
	d := validDescriptor()
	d.SSH = &SSHAuth{Host: "bastion", Port: 22, User: "deploy", Password: "secret"}
	if err := Validate(d); err != nil {
		t.Errorf("expected valid ssh block to pass, got %v", err)
	}
}

func TestValidateSSHAcceptsPrivateKeyCredential(t *testing.T) {
	d := validDescriptor()
	d.SSH = &SSHAuth{Host: "bastion", Port: 22, User: "deploy", PrivateKey: "----BEGIN----"}
	if err := Validate(d); err != nil {
		t.Errorf("expected valid ssh block to pass, got %v", err)
	}
}

func assertValidationField(t *testing.T, err error, wantField string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a validation error for field %q, got nil", wantField)
	}
	var ve *gwerrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *gwerrors.ValidationError, got %T: %v", err, err)
	}
	if ve.Field != wantField {
		t.Errorf("expected field %q, got %q (%v)", wantField, ve.Field, err)
	}
}
