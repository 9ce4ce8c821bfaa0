package openai

const classifyPrompt = `Classify the document described below into exactly one type and return JSON.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or
acknowledgment. Start your response directly with the opening brace { and end
with the closing brace }. Your output must exactly follow this schema:

{
  "doc_type": "textbook" | "exam_overview" | "syllabus" | "notes" | "other",
  "confidence": <number between 0.0 and 1.0>,
  "reasoning": "<one short sentence>"
}

Type definitions:
- "textbook": a book with chapters meant for studying a subject in depth.
- "exam_overview": a document describing what an exam covers (chapters, topics, logistics for a specific exam).
- "syllabus": a course outline with schedule, grading policy, office hours.
- "notes": lecture notes, slides, or a student's own study notes.
- "other": anything that fits none of the above.

Rules:
- Choose exactly one type. When torn between two, pick the more specific one
  and lower the confidence.
- Base the decision on the text sample and the filename together.
- The JSON must parse without errors; no trailing commas, no extra keys.`

const tocPrompt = `Extract the table of contents from the text below and return it as JSON.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or
acknowledgment. Start your response directly with the opening brace { and end
with the closing brace }. Your output must exactly follow this schema:

{
  "chapters": [
    {"chapter": <integer>, "title": "<string>", "page_start": <integer>, "page_end": <integer>}
  ],
  "notes": "<optional string>"
}

Rules:
- Report numbered chapters only; skip prefaces, appendices, and indexes.
- page_start and page_end are 1-indexed and inclusive. When the TOC lists
  only starting pages, a chapter ends one page before the next chapter starts.
- The last chapter ends at the final page of the document (given below).
- If the text contains no recognizable table of contents, return
  "chapters": [] and say so in "notes".
- The JSON must parse without errors; no trailing commas, no extra keys.`

const coveragePrompt = `Extract exam coverage from the document below and return it as JSON.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or
acknowledgment. Start your response directly with the opening brace { and end
with the closing brace }. Your output must exactly follow this schema:

{
  "exam_id": "<short lowercase identifier, e.g. midterm_1>",
  "exam_name": "<the exam's name as written in the document>",
  "exam_date": "<date if stated, else empty string>",
  "chapters": [<integers, the chapter numbers the exam covers>],
  "topics": [
    {"chapter": <integer>, "chapter_title": "<string>", "bullets": ["<topic bullet>"]}
  ]
}

Rules:
- "chapters" lists every chapter number the exam explicitly covers.
- "topics" groups the stated learning objectives per chapter; omit chapters
  with no stated topics.
- Use only what the document states. Do not invent chapters or topics.
- The JSON must parse without errors; no trailing commas, no extra keys.`
