package triage

import "fmt"

// Fixed bilingual texts used by the rule scorer. Every guidance string ends
// with the not-medical-advice disclaimer.
const (
	emergencyGuidanceBN = "⚠️ জরুরি অবস্থা!\n\n" +
		"১. অবিলম্বে নিকটতম হাসপাতালে যান\n" +
		"২. যদি সম্ভব হয় ৯৯৯ এ কল করুন\n" +
		"৩. রোগীকে একা রাখবেন না\n" +
		"৪. শান্ত থাকুন এবং রোগীকে আশ্বস্ত করুন\n\n" +
		"⛔ এটি চিকিৎসা পরামর্শ নয়। ডাক্তারের সাথে যোগাযোগ করুন।"

	emergencyGuidanceEN = "⚠️ EMERGENCY!\n\n" +
		"1. Go to the nearest hospital immediately\n" +
		"2. Call 999 if possible\n" +
		"3. Do not leave the patient alone\n" +
		"4. Stay calm and reassure the patient\n\n" +
		"⛔ This is not medical advice. Please consult a doctor."

	moderateGuidanceBN = "⚡ মাঝারি অবস্থা\n\n" +
		"১. আজকেই বা আগামীকাল ডাক্তার দেখান\n" +
		"২. পর্যাপ্ত বিশ্রাম নিন\n" +
		"৩. প্রচুর পানি পান করুন\n" +
		"৪. লক্ষণ খারাপ হলে হাসপাতালে যান\n\n" +
		"⛔ এটি চিকিৎসা পরামর্শ নয়।"

	moderateGuidanceEN = "⚡ Moderate Condition\n\n" +
		"1. Visit a doctor today or tomorrow\n" +
		"2. Get adequate rest\n" +
		"3. Drink plenty of water\n" +
		"4. Go to hospital if symptoms worsen\n\n" +
		"⛔ This is not medical advice."

	moderateExplanation = "একাধিক লক্ষণ বা দীর্ঘ সময়কাল সনাক্ত হয়েছে। ডাক্তারের পরামর্শ নেওয়া উচিত।\n\n" +
		"Multiple symptoms or prolonged duration detected. Medical consultation recommended."

	mildGuidanceBN = "✅ হালকা অবস্থা\n\n" +
		"১. ঘরে বিশ্রাম নিন\n" +
		"২. প্রচুর পানি ও তরল খাবার খান\n" +
		"৩. প্যারাসিটামল নিতে পারেন (প্রাপ্তবয়স্কদের জন্য)\n" +
		"৪. ২-৩ দিনে ভালো না হলে ডাক্তার দেখান\n\n" +
		"⛔ এটি চিকিৎসা পরামর্শ নয়।"

	mildGuidanceEN = "✅ Mild Condition\n\n" +
		"1. Rest at home\n" +
		"2. Drink plenty of water and fluids\n" +
		"3. Can take Paracetamol (for adults)\n" +
		"4. See a doctor if not better in 2-3 days\n\n" +
		"⛔ This is not medical advice."

	mildExplanation = "হালকা লক্ষণ সনাক্ত হয়েছে। ঘরোয়া যত্নে ভালো হওয়া সম্ভব।\n\n" +
		"Mild symptoms detected. May improve with home care."
)

func emergencyExplanation(nameBN, nameEN string) string {
	return fmt.Sprintf("জরুরি লক্ষণ সনাক্ত হয়েছে: %s। এটি গুরুতর হতে পারে।\n\n"+
		"Emergency symptom detected: %s. This could be serious.", nameBN, nameEN)
}

func emergencyResult(id, nameBN, nameEN string) Result {
	return Result{
		Severity:    SeverityEmergency,
		Explanation: emergencyExplanation(nameBN, nameEN),
		GuidanceBN:  emergencyGuidanceBN,
		GuidanceEN:  emergencyGuidanceEN,
		Provenance:  ProvenanceFallback,
		TriggeredBy: id,
	}
}

func tierResult(sev Severity, score int) Result {
	r := Result{
		Severity:   sev,
		Provenance: ProvenanceFallback,
		Score:      score,
	}
	switch sev {
	case SeverityModerate:
		r.Explanation = moderateExplanation
		r.GuidanceBN = moderateGuidanceBN
		r.GuidanceEN = moderateGuidanceEN
	default:
		r.Severity = SeverityMild
		r.Explanation = mildExplanation
		r.GuidanceBN = mildGuidanceBN
		r.GuidanceEN = mildGuidanceEN
	}
	return r
}
