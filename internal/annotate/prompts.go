/**
 * Question templates per annotation type.
 *
 * Each template instructs the model to answer in a JSON shape the fragment
 * decoder can recover. Page-wise templates are prepended to the batch text;
 * whole-document templates are appended after the selected text.
 */

package annotate

var questions = map[Type]string{
	TypeHeadings: "\n\nConsider the given context and generate 1 heading and the corresponding summary. " +
		"Suggest the heading text except introduction and conclusion. Make sure the summary is in bullet " +
		"points and should be in markup language. The summary should include all the data points, facts " +
		"and figures in minimum of 5 lines. The summary should contain as much information as possible. " +
		"Form your answer in the following json format:\n" +
		"{\n \"heading\": \"heading text\",\n \"summary\": \"Summary text\"\n}\n\ncontext:\n",

	TypeTimeline: "Extract a timeline if exists in the context. If a timeline does not exist, then please " +
		"provide the answer as \"no timeline\". Make sure in your answer you only include the timeline and " +
		"not any other summarised answer. Form your answer in the following json format. Each json node " +
		"should include one timeline information only:" +
		"\n\n{\n \"Time\": \"time element\",\n \"summary\": \"Summary text\"\n}\n\ncontext:\n",

	TypeQuestions: "\n\nBased on the context, suggest me 5 important possible questions and relevant answers. " +
		"Form your answer in the following json inside a list " +
		"format:\n[{\n \"question\": \"question text\",\n \"answer\": \"answer text\"\n}]\n",

	TypeSummary: "Give me short summary in maximum of 300 for the context. Make sure the answer is in " +
		"single or multiple paragraph format. Avoid any bullet points, headings and subheadings",

	TypeTopics: "Identify the main topics discussed in the context. Form your answer in the following json " +
		"format. Each json node should include one topic only:" +
		"\n\n{\n \"1\": {\n \"topic\": \"topic text\",\n \"description\": \"Description text\"\n }\n}\n\ncontext:\n",

	TypeCitations: "Extract the citations and references present in the context. If a citation does not " +
		"exist, then please provide the answer as \"no citation\". Form your answer in the following json " +
		"format. Each json node should include one citation only:" +
		"\n\n{\n \"1\": {\n \"citation\": \"citation text\",\n \"source\": \"source text\"\n }\n}\n\ncontext:\n",

	TypeCitedExamples: "Extract the examples cited in the context. If an example does not exist, then " +
		"please provide the answer as \"no example\". Form your answer in the following json format. Each " +
		"json node should include one example only:" +
		"\n\n{\n \"1\": {\n \"example\": \"example text\",\n \"summary\": \"Summary text\"\n }\n}\n\ncontext:\n",

	TypeNER: "Extract the named entities from the context with their types (person, organisation, " +
		"location, date, money, product). Form your answer in the following json format. Each json node " +
		"should include one entity only:" +
		"\n\n{\n \"1\": {\n \"entity\": \"entity text\",\n \"label\": \"entity type\"\n }\n}\n\ncontext:\n",

	TypeLegalInfo: "Extract the legal information from the context: parties, obligations, effective dates, " +
		"governing law and liabilities. If an item does not exist, answer \"does not exist\". Form your " +
		"answer as a json object keyed by the item name:" +
		"\n\n{\n \"item name\": {\n \"detail\": \"detail text\",\n \"reference\": \"where in the document\"\n }\n}\n\ncontext:\n",

	TypeFinancialInfo: "Extract the financial information from the context: amounts, revenues, costs, " +
		"projections and financial terms. If an item does not exist, answer \"does not exist\". Form your " +
		"answer as a json object keyed by the item name:" +
		"\n\n{\n \"item name\": {\n \"detail\": \"detail text\",\n \"reference\": \"where in the document\"\n }\n}\n\ncontext:\n",

	TypeEducationalInfo: "Extract the educational information from the context: concepts taught, " +
		"definitions, learning objectives and examples. If an item does not exist, answer \"does not " +
		"exist\". Form your answer as a json object keyed by the item name:" +
		"\n\n{\n \"item name\": {\n \"detail\": \"detail text\",\n \"reference\": \"where in the document\"\n }\n}\n\ncontext:\n",

	TypeEditorialInfo: "Extract the editorial information from the context: authors, publication details, " +
		"opinions and claims. If an item does not exist, answer \"does not exist\". Form your answer as a " +
		"json object keyed by the item name:" +
		"\n\n{\n \"item name\": {\n \"detail\": \"detail text\",\n \"reference\": \"where in the document\"\n }\n}\n\ncontext:\n",
}

// QuestionFor returns the built-in question template for an annotation type
func QuestionFor(t Type) (string, bool) {
	q, ok := questions[t]
	return q, ok
}
