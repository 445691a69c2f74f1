package questions

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	dbmodels "visa-interview-backend/models/db"
)

type fakeGpt struct {
	response string
	err      error
}

func (f *fakeGpt) GenerateLogged(ctx context.Context, sessionID string, reqType dbmodels.AiReqestType, sysPromt, userPromt string) (string, error) {
	return f.response, f.err
}

func TestQuestionsGenerator(t *testing.T) {
	t.Run(`ParseNumbered numbered list check`, func(t *testing.T) {
		response := "Here are your questions:\n" +
			"1. Why do you want to study abroad?\n" +
			"2) What university did you choose?\n" +
			"some noise line\n" +
			"3.   How will you pay for it?  \n"
		list := ParseNumbered(response)
		require.Equal(t, 3, len(list))
		require.Equal(t, "Why do you want to study abroad?", list[0])
		require.Equal(t, "What university did you choose?", list[1])
		require.Equal(t, "How will you pay for it?", list[2])
	})

	t.Run(`ParseNumbered empty response check`, func(t *testing.T) {
		require.Empty(t, ParseNumbered(""))
		require.Empty(t, ParseNumbered("no numbered lines here"))
	})

	t.Run(`Fallback truncation check`, func(t *testing.T) {
		require.Equal(t, 2, len(Fallback(2)))
		require.Equal(t, 10, len(Fallback(100)))
	})

	t.Run(`Generate truncates to requested count check`, func(t *testing.T) {
		gpt := &fakeGpt{response: "1. q one\n2. q two\n3. q three\n4. q four"}
		gen := NewGenerator(gpt)
		list := gen.Generate(context.TODO(), "sess", 2, "desc", "{}")
		require.Equal(t, []string{"q one", "q two"}, list)
	})

	t.Run(`Generate strips markdown fencing check`, func(t *testing.T) {
		gpt := &fakeGpt{response: "```\n1. q one\n2. q two\n```"}
		gen := NewGenerator(gpt)
		list := gen.Generate(context.TODO(), "sess", 2, "desc", "{}")
		require.Equal(t, []string{"q one", "q two"}, list)
	})

	t.Run(`Generate on ai error uses fallback check`, func(t *testing.T) {
		gpt := &fakeGpt{err: errors.New("ai down")}
		gen := NewGenerator(gpt)
		list := gen.Generate(context.TODO(), "sess", 3, "desc", "{}")
		require.Equal(t, Fallback(3), list)
	})

	t.Run(`Generate on unparsable response uses fallback check`, func(t *testing.T) {
		gpt := &fakeGpt{response: "I cannot generate questions"}
		gen := NewGenerator(gpt)
		list := gen.Generate(context.TODO(), "sess", 2, "desc", "{}")
		require.Equal(t, Fallback(2), list)
	})
}
