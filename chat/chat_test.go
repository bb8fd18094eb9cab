package chat_test

import (
	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/luma/lodestone/chat"
)

var _ = Describe("chat", func() {
	It("escapes text", func() {
		Expect(chat.Text(`say "hi"`)).To(MatchJSON(`{"text":"say \"hi\""}`))
	})

	table.DescribeTable("extracts plain text",
		func(in, expected string) {
			Expect(chat.Plain(in)).To(Equal(expected))
		},
		table.Entry("component", `{"text":"hello"}`, "hello"),
		table.Entry("json string", `"hello"`, "hello"),
		table.Entry("bare", "hello", "hello"),
		table.Entry("empty", "", ""),
	)
})
