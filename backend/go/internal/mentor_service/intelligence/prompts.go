package intelligence

const extractionPrompt = `You are an AI assistant specialized in extracting structured facts about students from conversations.

Based on the following conversation excerpt:

USER: %s
ASSISTANT: %s

Please extract any facts about the student, considering these existing facts:
%s

Extract facts in these categories:
1. ACADEMIC: courses, study habits, academic performance, interests, challenges
2. CAREER: goals, interests, skills, experiences, plans
3. PERSONAL: preferences, challenges, support needs, wellbeing status

For each fact, indicate if it's NEW, UPDATED, or a CONFIRMATION of existing information.

Include only definite facts, not speculations.`

const summaryPrompt = `Below is a conversation between a student and an AI mentor.
Please provide a concise summary of the main topics discussed, any issues raised,
and any actions or advice given.

CONVERSATION:
%s

SUMMARY:`
