package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_Submit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.messages.Submit(ctx, ContactInput{Name: "<Jo>", Email: " Jo@X.com ", Subject: "Parking", Message: "Is there parking?"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "jo@x.com", m.Email)

	mail := f.mail.last(t)
	assert.Equal(t, "jo@x.com", mail.To)
	assert.Equal(t, "Message Received", mail.Subject)
	assert.Contains(t, mail.Body, "Parking")
	assert.Contains(t, mail.Body, "&lt;Jo&gt;")

	list, err := f.messages.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Is there parking?", list[0].Body)
}

func TestMessage_SubmitSurvivesMailFailure(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errSMTPDown

	_, err := f.messages.Submit(context.Background(), ContactInput{Name: "Jo", Email: "jo@x.com", Message: "Hello"})
	require.NoError(t, err)
	assert.Contains(t, f.mail.last(t).Body, "General Inquiry")

	list, err := f.messages.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMessage_Validation(t *testing.T) {
	f := newFixture(t)
	for _, in := range []ContactInput{
		{Name: "", Email: "jo@x.com", Message: "Hello"},
		{Name: "Jo", Email: "nope", Message: "Hello"},
		{Name: "Jo", Email: "jo@x.com", Message: "  "},
	} {
		_, err := f.messages.Submit(context.Background(), in)
		requireKind(t, err, KindValidation)
	}
	assert.Empty(t, f.mail.messages())
}

func TestDepartments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.departments.Create(ctx, DepartmentInput{Name: " Cardiology ", Description: "Heart care"})
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", d.Name)
	assert.Equal(t, DefaultDepartmentTiming, d.Timing)

	_, err = f.departments.Create(ctx, DepartmentInput{Name: "Cardiology"})
	assert.ErrorIs(t, err, ErrDuplicateDepartment)

	_, err = f.departments.Create(ctx, DepartmentInput{Name: ""})
	requireKind(t, err, KindValidation)

	_, err = f.departments.Create(ctx, DepartmentInput{Name: "Neurology", Timing: "24/7"})
	require.NoError(t, err)

	list, err := f.departments.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Cardiology", list[0].Name)
	assert.Equal(t, "24/7", list[1].Timing)
}
